package selection_test

import (
	"fmt"
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/selection"
	"github.com/vhp4safety/aopgraph/pkg/testutil"
)

func tableFixture(t *testing.T) (*graphstore.Store, []selection.Row) {
	t.Helper()
	store := testutil.MustStore(t, testutil.Pathway("p", 4))
	rows := []selection.Row{
		{SourceID: "p-n0", SourceLabel: "p event 0", Relationship: "ker", TargetID: "p-n1", TargetLabel: "p event 1"},
		{SourceID: "p-n1", SourceLabel: "p event 1", Relationship: "ker", TargetID: "p-n2", TargetLabel: "p event 2"},
		{SourceID: "p-n2", SourceLabel: "p event 2", Relationship: "ker", TargetID: "p-n3", TargetLabel: "p event 3"},
	}
	return store, rows
}

func TestTableToGraphIncludesConnectingEdge(t *testing.T) {
	store, rows := tableFixture(t)
	ids := selection.TableToGraph(map[int]struct{}{0: {}}, rows, store)
	want := map[string]bool{"p-n0": true, "p-n1": true, "p-e0": true}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected id %s", id)
		}
	}
}

func TestTableToGraphSkipsSentinel(t *testing.T) {
	rows := []selection.Row{
		{SourceID: "p-n0", TargetID: selection.Sentinel},
	}
	ids := selection.TableToGraph(map[int]struct{}{0: {}}, rows, nil)
	if len(ids) != 1 || ids[0] != "p-n0" {
		t.Errorf("ids = %v, want [p-n0]", ids)
	}
}

func TestTableToGraphDeduplicatesSharedEndpoints(t *testing.T) {
	store, rows := tableFixture(t)
	// Rows 0 and 1 share p-n1.
	ids := selection.TableToGraph(map[int]struct{}{0: {}, 1: {}}, rows, store)
	seen := map[string]int{}
	for _, id := range ids {
		seen[id]++
	}
	if seen["p-n1"] != 1 {
		t.Errorf("p-n1 appears %d times", seen["p-n1"])
	}
}

func TestGraphToRowsMatchesEitherEndpoint(t *testing.T) {
	_, rows := tableFixture(t)
	got := selection.GraphToRows(map[string]struct{}{"p-n1": {}}, rows)
	if len(got) != 2 {
		t.Errorf("rows = %v, want rows 0 and 1", got)
	}
}

func TestClickRowPlainSelectsExactlyRow(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	sync.ClickRow(1, selection.ModNone)

	sel := store.Selected()
	want := map[string]bool{"p-n1": true, "p-n2": true, "p-e1": true}
	if len(sel) != len(want) {
		t.Fatalf("selected = %v", sel)
	}
	for _, id := range sel {
		if !want[id] {
			t.Errorf("unexpected id %s", id)
		}
	}
	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"1"})
}

func TestClickRowToggleKeepsOthers(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	sync.ClickRow(0, selection.ModNone)
	sync.ClickRow(2, selection.ModToggle)
	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"0", "2"})

	sync.ClickRow(2, selection.ModToggle)
	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"0"})
}

func TestClickRowRangeFormsSingleRun(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	sync.ClickRow(0, selection.ModNone)
	sync.ClickRow(2, selection.ModRange)
	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"0", "1", "2"})
}

func TestRangeDropsDisjointPriorSelection(t *testing.T) {
	store := testutil.MustStore(t, testutil.Pathway("p", 7))
	var rows []selection.Row
	for i := 0; i < 6; i++ {
		rows = append(rows, selection.Row{
			SourceID: fmt.Sprintf("p-n%d", i), TargetID: fmt.Sprintf("p-n%d", i+1),
		})
	}
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	// Prior selection {5, 0} with anchor 0; the range to 2 forms the run
	// 0..2 and drops the disjoint row 5.
	sync.ClickRow(5, selection.ModNone)
	sync.ClickRow(0, selection.ModToggle)
	sync.ClickRow(2, selection.ModRange)
	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"0", "1", "2"})
}

func TestGraphSelectionMirrorsToRows(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	var callbacks [][]int
	sync.OnRowsChanged(func(indices []int) {
		callbacks = append(callbacks, indices)
	})

	sync.ClickElement("p-n2", selection.ModNone)

	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"1", "2"})
	if len(callbacks) != 1 {
		t.Errorf("callbacks = %d, want exactly 1 (no feedback loop)", len(callbacks))
	}
}

func TestTableClickDoesNotEchoBack(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	echoes := 0
	sync.OnRowsChanged(func([]int) { echoes++ })

	sync.ClickRow(0, selection.ModNone)
	if echoes != 0 {
		t.Errorf("table click echoed %d graph events back to the table", echoes)
	}
}

func TestClickElementToggle(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	sync.ClickElement("p-n0", selection.ModNone)
	sync.ClickElement("p-n3", selection.ModToggle)
	sel := store.Selected()
	if len(sel) != 2 {
		t.Fatalf("selected = %v", sel)
	}

	sync.ClickElement("p-n0", selection.ModToggle)
	sel = store.Selected()
	if len(sel) != 1 || sel[0] != "p-n3" {
		t.Errorf("selected = %v, want [p-n3]", sel)
	}
}

func TestSetRowsReprojectsExistingSelection(t *testing.T) {
	store, rows := tableFixture(t)
	sync := selection.NewSynchronizer(store)
	sync.SetRows(rows)

	store.SetSelection([]string{"p-n0"})
	// Refresh with the same rows reordered.
	reordered := []selection.Row{rows[2], rows[0], rows[1]}
	sync.SetRows(reordered)

	testutil.AssertIDs(t, intsToStrings(sync.SelectedRows()), []string{"1"})
}

func intsToStrings(in []int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprintf("%d", v)
	}
	return out
}
