// Package testutil provides deterministic network fixture generators for
// tests: linear pathways, branching pathways and annotated networks.
package testutil

import (
	"fmt"
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Pathway builds a linear AOP pathway of the given length: one MIE,
// length-2 key events, one adverse outcome, connected by KER edges.
// IDs are deterministic: <prefix>-n0 .. <prefix>-n{length-1}, edges
// <prefix>-e0 .. <prefix>-e{length-2}.
func Pathway(prefix string, length int, aops ...string) []model.RawElement {
	if length < 2 {
		length = 2
	}
	var out []model.RawElement
	for i := 0; i < length; i++ {
		t := model.NodeTypeKeyEvent
		switch i {
		case 0:
			t = model.NodeTypeMIE
		case length - 1:
			t = model.NodeTypeAdverseOutcome
		}
		n := model.RawElement{
			ID:    fmt.Sprintf("%s-n%d", prefix, i),
			Label: fmt.Sprintf("%s event %d", prefix, i),
			Type:  string(t),
		}
		if len(aops) > 0 {
			n.Attributes = map[string]any{"aops": aops}
		}
		out = append(out, n)
	}
	for i := 0; i < length-1; i++ {
		out = append(out, model.RawElement{
			ID:     fmt.Sprintf("%s-e%d", prefix, i),
			Source: fmt.Sprintf("%s-n%d", prefix, i),
			Target: fmt.Sprintf("%s-n%d", prefix, i+1),
			Type:   string(model.EdgeTypeKER),
		})
	}
	return out
}

// Annotate attaches one annotation node of the given type to an existing
// node, connected by an annotation edge.
func Annotate(targetID, annotationID string, t model.NodeType) []model.RawElement {
	return []model.RawElement{
		{
			ID:    annotationID,
			Label: annotationID,
			Type:  string(t),
		},
		{
			ID:     annotationID + "-link",
			Source: annotationID,
			Target: targetID,
			Type:   string(model.EdgeTypeAnnotation),
		},
	}
}

// DanglingEdge returns an edge record referencing endpoints that may not
// exist yet.
func DanglingEdge(id, source, target string) model.RawElement {
	return model.RawElement{
		ID:     id,
		Source: source,
		Target: target,
		Type:   string(model.EdgeTypeKER),
	}
}

// MustStore builds a store over a fresh bus and merges the fixture
// elements through the typed conversion, failing the test on malformed
// records.
func MustStore(t *testing.T, raws []model.RawElement) *graphstore.Store {
	t.Helper()
	store := graphstore.New(nil)
	var els []model.Element
	for _, r := range raws {
		el, err := r.Element()
		if err != nil {
			t.Fatalf("fixture element %s: %v", r.ID, err)
		}
		els = append(els, el)
	}
	store.AddBatch(els)
	return store
}

// AssertIDs fails the test unless got and want hold the same ids in the
// same order.
func AssertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d ids %v, want %d ids %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("id %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

// AssertNoDuplicateIDs fails the test when the store holds an id twice
// across its node and edge sets.
func AssertNoDuplicateIDs(t *testing.T, store *graphstore.Store) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range store.AllIDs() {
		if seen[id] {
			t.Errorf("duplicate element id: %s", id)
		}
		seen[id] = true
	}
}
