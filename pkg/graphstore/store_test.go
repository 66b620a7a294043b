package graphstore_test

import (
	"errors"
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

func node(id string, t model.NodeType) *model.Node {
	return &model.Node{ID: id, Label: id, Type: t}
}

func edge(id, source, target string) *model.Edge {
	return &model.Edge{ID: id, Source: source, Target: target, Type: model.EdgeTypeKER}
}

func pathwayStore() *graphstore.Store {
	s := graphstore.New(nil)
	s.AddBatch([]model.Element{
		node("mie1", model.NodeTypeMIE),
		node("ke1", model.NodeTypeKeyEvent),
		node("ao1", model.NodeTypeAdverseOutcome),
		edge("e1", "mie1", "ke1"),
		edge("e2", "ke1", "ao1"),
	})
	return s
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := graphstore.New(nil)
	if err := s.Add(node("n1", model.NodeTypeMIE)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := s.Add(node("n1", model.NodeTypeKeyEvent))
	if !errors.Is(err, graphstore.ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
	n, _ := s.Node("n1")
	if n.Type != model.NodeTypeMIE {
		t.Errorf("existing element was overwritten")
	}
}

func TestAddBatchSkipsCollisionsAndPublishesOnce(t *testing.T) {
	bus := events.NewBus()
	s := graphstore.New(bus)
	var added [][]string
	bus.Subscribe(events.ElementsAdded, func(e events.Event) {
		added = append(added, e.IDs)
	})

	got := s.AddBatch([]model.Element{
		node("a", model.NodeTypeMIE),
		node("a", model.NodeTypeMIE),
		node("b", model.NodeTypeKeyEvent),
	})
	if len(got) != 2 {
		t.Fatalf("added = %v, want [a b]", got)
	}
	if len(added) != 1 {
		t.Fatalf("events = %d, want 1", len(added))
	}
	if len(added[0]) != 2 {
		t.Errorf("event ids = %v, want 2 ids", added[0])
	}
}

func TestInsertionOrderIsStable(t *testing.T) {
	s := pathwayStore()
	want := []string{"mie1", "ke1", "ao1", "e1", "e2"}
	got := s.AllIDs()
	if len(got) != len(want) {
		t.Fatalf("ids = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("id[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRemoveNodeCascadesToEdges(t *testing.T) {
	bus := events.NewBus()
	s := graphstore.New(bus)
	s.AddBatch([]model.Element{
		node("mie1", model.NodeTypeMIE),
		node("ke1", model.NodeTypeKeyEvent),
		edge("e1", "mie1", "ke1"),
	})
	var removedEvents [][]string
	bus.Subscribe(events.ElementsRemoved, func(e events.Event) {
		removedEvents = append(removedEvents, e.IDs)
	})

	removed := s.Remove("ke1")
	if len(removed) != 2 {
		t.Fatalf("removed = %v, want node plus incident edge", removed)
	}
	if s.HasID("e1") {
		t.Errorf("incident edge survived node removal")
	}
	if len(removedEvents) != 1 {
		t.Errorf("events = %d, want 1", len(removedEvents))
	}
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	s := pathwayStore()
	if removed := s.Remove("ghost"); len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	if s.Len() != 5 {
		t.Errorf("len = %d, want 5", s.Len())
	}
}

func TestEdgeBetween(t *testing.T) {
	s := pathwayStore()
	id, ok := s.EdgeBetween("mie1", "ke1")
	if !ok || id != "e1" {
		t.Errorf("got %q %v, want e1 true", id, ok)
	}
	if _, ok := s.EdgeBetween("ke1", "mie1"); ok {
		t.Errorf("reversed direction should not match")
	}
}

func TestNeighborsAndIncidentEdges(t *testing.T) {
	s := pathwayStore()
	if got := s.Neighbors("ke1"); len(got) != 2 {
		t.Errorf("neighbors = %v, want 2", got)
	}
	if got := s.IncidentEdges("mie1"); len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("incident = %v", got)
	}
}

func TestEdgeComplete(t *testing.T) {
	s := graphstore.New(nil)
	s.AddBatch([]model.Element{
		node("a", model.NodeTypeMIE),
		edge("dangling", "a", "missing"),
	})
	if s.EdgeComplete("dangling") {
		t.Errorf("edge with missing endpoint reported complete")
	}
	s.Add(node("missing", model.NodeTypeKeyEvent))
	if !s.EdgeComplete("dangling") {
		t.Errorf("edge not complete after endpoint arrived")
	}
}

func TestSelectionEventsAndSilence(t *testing.T) {
	bus := events.NewBus()
	s := graphstore.New(bus)
	s.AddBatch([]model.Element{node("a", model.NodeTypeMIE), node("b", model.NodeTypeKeyEvent)})

	fired := 0
	bus.Subscribe(events.SelectionChanged, func(events.Event) { fired++ })

	s.SetSelection([]string{"a"})
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	// Unchanged selection publishes nothing.
	s.SetSelection([]string{"a"})
	if fired != 1 {
		t.Errorf("unchanged selection fired an event")
	}
	s.SetSelectionSilent([]string{"b"})
	if fired != 1 {
		t.Errorf("silent write fired an event")
	}
	got := s.Selected()
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("selected = %v, want [b]", got)
	}
}

func TestToggleSelected(t *testing.T) {
	s := pathwayStore()
	s.ToggleSelected("mie1")
	if !s.IsSelected("mie1") {
		t.Fatalf("toggle on failed")
	}
	s.ToggleSelected("mie1")
	if s.IsSelected("mie1") {
		t.Errorf("toggle off failed")
	}
}

func TestSetHiddenReportsChanges(t *testing.T) {
	s := pathwayStore()
	changed := s.SetHidden([]string{"ke1", "ke1", "ghost"}, true)
	if len(changed) != 1 || changed[0] != "ke1" {
		t.Fatalf("changed = %v, want [ke1]", changed)
	}
	if !s.IsHidden("ke1") {
		t.Errorf("ke1 not hidden")
	}
	// Hiding again is a no-op.
	if changed := s.SetHidden([]string{"ke1"}, true); len(changed) != 0 {
		t.Errorf("second hide changed %v", changed)
	}
	visible := s.VisibleNodeIDs()
	if len(visible) != 2 {
		t.Errorf("visible = %v, want 2 nodes", visible)
	}
}

func TestBaseStyleCaptureAndRestore(t *testing.T) {
	s := pathwayStore()
	s.SetStyle("mie1", graphstore.Style{Opacity: 0.8, Color: "#123456"})

	s.CaptureBaseStyles()
	s.SetStyle("mie1", graphstore.Style{Opacity: 0.15})
	s.SetStyle("ke1", graphstore.Style{Opacity: 0.15})

	// A second capture while one is held must not overwrite the snapshot.
	s.CaptureBaseStyles()

	s.RestoreBaseStyles()
	if got := s.StyleOf("mie1"); got.Opacity != 0.8 || got.Color != "#123456" {
		t.Errorf("mie1 style = %+v, want captured original", got)
	}
	if got := s.StyleOf("ke1"); got != graphstore.DefaultStyle() {
		t.Errorf("ke1 style = %+v, want default", got)
	}
}

func TestComputeLayoutLayersFollowTopology(t *testing.T) {
	s := pathwayStore()
	pos := s.ComputeLayout()
	if len(pos) != 3 {
		t.Fatalf("positions = %d, want 3 nodes", len(pos))
	}
	if !(pos["mie1"].Y < pos["ke1"].Y && pos["ke1"].Y < pos["ao1"].Y) {
		t.Errorf("layers out of order: %v", pos)
	}
}

func TestComputeLayoutCycleFallsBackToGrid(t *testing.T) {
	s := graphstore.New(nil)
	s.AddBatch([]model.Element{
		node("a", model.NodeTypeKeyEvent),
		node("b", model.NodeTypeKeyEvent),
		edge("ab", "a", "b"),
		edge("ba", "b", "a"),
	})
	pos := s.ComputeLayout()
	if len(pos) != 2 {
		t.Fatalf("positions = %d, want 2", len(pos))
	}
	if pos["a"] == pos["b"] {
		t.Errorf("grid fallback stacked nodes at %v", pos["a"])
	}
}
