package aop_test

import (
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/aop"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/testutil"
)

// twoPathwayStore holds pathway a (AOP:1) and pathway b (AOP:2).
func twoPathwayStore(t *testing.T) *graphstore.Store {
	t.Helper()
	els := append(
		testutil.Pathway("a", 3, "AOP:1"),
		testutil.Pathway("b", 3, "AOP:2")...,
	)
	return testutil.MustStore(t, els)
}

func TestToggleFilterDimsNonMatching(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	if st := e.ToggleFilter("AOP:1"); st != aop.StatusApplied {
		t.Fatalf("status = %v, want applied", st)
	}
	if e.Mode() != aop.SingleFilter || e.Single() != "AOP:1" {
		t.Fatalf("mode = %v single = %s", e.Mode(), e.Single())
	}

	if got := store.StyleOf("a-n0"); got.Opacity != 1 {
		t.Errorf("matching node dimmed: %+v", got)
	}
	if got := store.StyleOf("b-n0"); got.Opacity >= 1 {
		t.Errorf("non-matching node not dimmed: %+v", got)
	}
	// Edge inside the matching pathway keeps full opacity.
	if got := store.StyleOf("a-e0"); got.Opacity != 1 {
		t.Errorf("matching edge dimmed: %+v", got)
	}
	if got := store.StyleOf("b-e0"); got.Opacity >= 1 {
		t.Errorf("non-matching edge not dimmed: %+v", got)
	}
}

func TestToggleFilterSecondClickRestores(t *testing.T) {
	store := twoPathwayStore(t)
	store.SetStyle("b-n0", graphstore.Style{Opacity: 0.5, Color: "#abcdef"})
	e := aop.NewEngine(store)

	e.ToggleFilter("AOP:1")
	if st := e.ToggleFilter("AOP:1"); st != aop.StatusCleared {
		t.Fatalf("second toggle status = %v, want cleared", st)
	}
	if e.Mode() != aop.Unfiltered {
		t.Errorf("mode = %v, want unfiltered", e.Mode())
	}
	if got := store.StyleOf("b-n0"); got.Opacity != 0.5 || got.Color != "#abcdef" {
		t.Errorf("pre-filter style not restored: %+v", got)
	}
	if got := store.StyleOf("a-n0"); got != graphstore.DefaultStyle() {
		t.Errorf("default style not restored: %+v", got)
	}
}

func TestToggleFilterSwitchesTarget(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	e.ToggleFilter("AOP:1")
	if st := e.ToggleFilter("AOP:2"); st != aop.StatusApplied {
		t.Fatalf("status = %v", st)
	}
	if e.Single() != "AOP:2" {
		t.Errorf("single = %s, want AOP:2", e.Single())
	}
	if got := store.StyleOf("a-n0"); got.Opacity >= 1 {
		t.Errorf("previous filter target still highlighted: %+v", got)
	}
}

func TestToggleFilterNoMatchesLeavesStateUntouched(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)
	e.ToggleFilter("AOP:1")

	if st := e.ToggleFilter("AOP:99"); st != aop.StatusNoMatches {
		t.Fatalf("status = %v, want no matches", st)
	}
	if e.Mode() != aop.SingleFilter || e.Single() != "AOP:1" {
		t.Errorf("no-match toggle disturbed active filter: %v %s", e.Mode(), e.Single())
	}
}

func TestGroupingClearsSingleFilter(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	e.ToggleFilter("AOP:1")
	if st := e.ToggleGroup("AOP:2"); st != aop.StatusApplied {
		t.Fatalf("status = %v", st)
	}
	if e.Mode() != aop.Grouped {
		t.Errorf("mode = %v, want grouped", e.Mode())
	}
	if e.Single() != "" {
		t.Errorf("single filter survived grouping: %s", e.Single())
	}
}

func TestGroupColorsFollowToggleOrder(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	e.ToggleGroup("AOP:1")
	e.ToggleGroup("AOP:2")

	c1 := e.GroupColor("AOP:1")
	c2 := e.GroupColor("AOP:2")
	if c1 != aop.DefaultPalette[0] || c2 != aop.DefaultPalette[1] {
		t.Errorf("colors = %s %s, want first two palette entries", c1, c2)
	}
	if got := store.StyleOf("a-n0"); got.Color != c1 {
		t.Errorf("a-n0 color = %s, want %s", got.Color, c1)
	}
	if got := store.StyleOf("b-n0"); got.Color != c2 {
		t.Errorf("b-n0 color = %s, want %s", got.Color, c2)
	}
}

func TestRemovingLastGroupRestores(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	e.ToggleGroup("AOP:1")
	if st := e.ToggleGroup("AOP:1"); st != aop.StatusCleared {
		t.Fatalf("status = %v, want cleared", st)
	}
	if e.Mode() != aop.Unfiltered {
		t.Errorf("mode = %v", e.Mode())
	}
	if got := store.StyleOf("a-n0"); got != graphstore.DefaultStyle() {
		t.Errorf("styles not restored: %+v", got)
	}
}

func TestGroupAllTwiceRestoresOriginalState(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)
	universe := []string{"AOP:1", "AOP:2"}

	if st := e.GroupAll(universe); st != aop.StatusApplied {
		t.Fatalf("first GroupAll = %v", st)
	}
	if len(e.GroupedIDs()) != 2 {
		t.Fatalf("grouped = %v", e.GroupedIDs())
	}
	if st := e.GroupAll(universe); st != aop.StatusCleared {
		t.Fatalf("second GroupAll = %v, want cleared", st)
	}
	if e.Mode() != aop.Unfiltered || len(e.GroupedIDs()) != 0 {
		t.Errorf("state after double toggle: %v %v", e.Mode(), e.GroupedIDs())
	}
	if got := store.StyleOf("b-n1"); got != graphstore.DefaultStyle() {
		t.Errorf("styles not restored: %+v", got)
	}
}

func TestGroupAllAfterPartialGroupsEverything(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)

	e.ToggleGroup("AOP:1")
	if st := e.GroupAll([]string{"AOP:1", "AOP:2"}); st != aop.StatusApplied {
		t.Fatalf("status = %v, want applied (partial set is not 'all grouped')", st)
	}
	if len(e.GroupedIDs()) != 2 {
		t.Errorf("grouped = %v", e.GroupedIDs())
	}
}

func TestReapplyStylesNewElements(t *testing.T) {
	store := twoPathwayStore(t)
	e := aop.NewEngine(store)
	e.ToggleFilter("AOP:1")

	late := &model.Node{ID: "late", Type: model.NodeTypeKeyEvent,
		Attributes: map[string]any{"aops": []string{"AOP:2"}}}
	store.Add(late)
	e.Reapply()

	if got := store.StyleOf("late"); got.Opacity >= 1 {
		t.Errorf("late element not dimmed by active filter: %+v", got)
	}
}

func TestMatches(t *testing.T) {
	n := &model.Node{ID: "n", Attributes: map[string]any{
		"aops": []string{"https://identifiers.org/aop/3"},
	}}
	if !aop.Matches(n, "AOP:3") {
		t.Errorf("URI form did not match canonical id")
	}
	if aop.Matches(n, "AOP:4") {
		t.Errorf("unrelated id matched")
	}
}

func TestComputeStylesEdgeTakesSourceGroupColor(t *testing.T) {
	nodes := []*model.Node{
		{ID: "x", Attributes: map[string]any{"aops": []string{"AOP:1"}}},
		{ID: "y", Attributes: map[string]any{"aops": []string{"AOP:2"}}},
	}
	edges := []*model.Edge{{ID: "xy", Source: "x", Target: "y"}}

	styles := aop.ComputeStyles(aop.Grouped, "", []string{"AOP:1", "AOP:2"},
		aop.DefaultPalette, nodes, edges)

	if styles["xy"].Color != aop.DefaultPalette[0] {
		t.Errorf("edge color = %s, want source color %s",
			styles["xy"].Color, aop.DefaultPalette[0])
	}
	if styles["xy"].Opacity != 1 {
		t.Errorf("edge with both endpoints matched is dimmed")
	}
}
