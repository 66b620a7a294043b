package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/schedule"
)

// Document assembles the exportable network document from the current
// session state: elements, node positions, font scale and per-type
// visibility flags.
func (s *Session) Document() model.Document {
	return model.NewDocument(
		s.RawElements(),
		s.Store.Positions(),
		s.FontSizeMultiplier(),
		s.Vis.Flags(),
	)
}

// Export writes the network document to w.
func (s *Session) Export(w io.Writer) error {
	data, err := s.Document().Marshal()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Save writes the network document to path via a temp-file rename so a
// concurrent watcher never observes a half-written document.
func (s *Session) Save(path string) error {
	data, err := s.Document().Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".aopgraph-save-*")
	if err != nil {
		return fmt.Errorf("creating temp save file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing save file: %w", err)
	}
	return nil
}

// LoadFile imports a network document: elements merge in (idempotent),
// saved positions are applied on top, and style/flag state is restored.
// Export followed by LoadFile into a fresh session reproduces the same
// element set and positions.
func (s *Session) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading network document: %w", err)
	}
	return s.LoadDocumentBytes(data)
}

// LoadDocumentBytes imports a network document from memory.
func (s *Session) LoadDocumentBytes(data []byte) error {
	doc, err := model.ParseDocument(data)
	if err != nil {
		return err
	}
	s.MergeElements(doc.Elements)
	if len(doc.Layout) > 0 {
		s.Store.ApplyLayout(doc.Layout)
		// The saved layout is authoritative; drop the pending auto-layout
		// the merge just scheduled so it does not overwrite positions.
		s.Sched.Cancel(schedule.ChannelLayout)
	}
	s.SetFontSizeMultiplier(doc.Style.FontSizeMultiplier)
	if len(doc.Metadata.Flags) > 0 {
		s.Vis.SetFlags(doc.Metadata.Flags)
	}
	return nil
}
