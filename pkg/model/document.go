package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// DocumentVersion identifies the export format produced by this build.
const DocumentVersion = "2.0"

// Position is a node coordinate produced by layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DocumentStyle carries session-level presentation state that must survive
// an export/import round trip.
type DocumentStyle struct {
	FontSizeMultiplier float64 `json:"fontSizeMultiplier"`
	Timestamp          string  `json:"timestamp,omitempty"`
}

// DocumentMetadata describes provenance and the per-type visibility flags
// active at export time.
type DocumentMetadata struct {
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version"`
	Flags     map[string]bool `json:"flags,omitempty"`
}

// Document is the persisted network layout: the full element set, node
// positions, style and toggle state. Export followed by import must
// reproduce the same element set and positions within float tolerance.
type Document struct {
	Elements []RawElement        `json:"elements"`
	Style    DocumentStyle       `json:"style"`
	Layout   map[string]Position `json:"layout,omitempty"`
	Metadata DocumentMetadata    `json:"metadata"`
}

// NewDocument assembles a Document stamped with the current time.
func NewDocument(elements []RawElement, layout map[string]Position, fontSize float64, flags map[string]bool) Document {
	now := time.Now().UTC().Format(time.RFC3339)
	return Document{
		Elements: elements,
		Style:    DocumentStyle{FontSizeMultiplier: fontSize, Timestamp: now},
		Layout:   layout,
		Metadata: DocumentMetadata{Timestamp: now, Version: DocumentVersion, Flags: flags},
	}
}

// Marshal serializes the document with stable field order.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling network document: %w", err)
	}
	return data, nil
}

// ParseDocument decodes an exported network document. Documents missing a
// style block (older exports) get a font multiplier of 1.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("parsing network document: %w", err)
	}
	if d.Style.FontSizeMultiplier == 0 {
		d.Style.FontSizeMultiplier = 1
	}
	return d, nil
}
