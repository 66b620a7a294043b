package analysis_test

import (
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/analysis"
	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/testutil"
)

func TestComputeLinearPathway(t *testing.T) {
	store := testutil.MustStore(t, testutil.Pathway("p", 4))
	got := analysis.Compute(store)

	want := analysis.NetworkStats{
		Nodes: 4, Edges: 3,
		MIEs: 1, KeyEvents: 2, Outcomes: 1,
		Roots: 1, Leaves: 1,
		MaxDepth: 3, Components: 1,
	}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestComputeDisconnectedPathways(t *testing.T) {
	els := append(testutil.Pathway("a", 3), testutil.Pathway("b", 3)...)
	store := testutil.MustStore(t, els)
	got := analysis.Compute(store)

	if got.Components != 2 {
		t.Errorf("components = %d, want 2", got.Components)
	}
	if got.Roots != 2 || got.Leaves != 2 {
		t.Errorf("roots/leaves = %d/%d, want 2/2", got.Roots, got.Leaves)
	}
	if got.MaxDepth != 2 {
		t.Errorf("max depth = %d, want 2", got.MaxDepth)
	}
}

func TestComputeIgnoresAnnotationEdges(t *testing.T) {
	els := append(
		testutil.Pathway("p", 3),
		testutil.Annotate("p-n1", "gene1", model.NodeTypeUniProt)...,
	)
	store := testutil.MustStore(t, els)
	got := analysis.Compute(store)

	if got.Nodes != 4 || got.Edges != 3 {
		t.Errorf("counts = %d nodes %d edges", got.Nodes, got.Edges)
	}
	// The annotation edge contributes to neither depth nor degree; the
	// annotation node stands alone on the KER backbone.
	if got.MaxDepth != 2 {
		t.Errorf("max depth = %d, want 2", got.MaxDepth)
	}
	if got.Roots != 2 || got.Leaves != 2 {
		t.Errorf("roots/leaves = %d/%d", got.Roots, got.Leaves)
	}
}

func TestComputeDetectsCycle(t *testing.T) {
	store := testutil.MustStore(t, []model.RawElement{
		{ID: "a", Type: string(model.NodeTypeKeyEvent)},
		{ID: "b", Type: string(model.NodeTypeKeyEvent)},
		testutil.DanglingEdge("ab", "a", "b"),
		testutil.DanglingEdge("ba", "b", "a"),
	})
	got := analysis.Compute(store)

	if !got.HasCycle {
		t.Errorf("cycle not detected")
	}
}

func TestComputeSelfEdgeIsCycle(t *testing.T) {
	store := testutil.MustStore(t, []model.RawElement{
		{ID: "a", Type: string(model.NodeTypeKeyEvent)},
		testutil.DanglingEdge("aa", "a", "a"),
	})
	got := analysis.Compute(store)

	if !got.HasCycle {
		t.Errorf("self edge not flagged as cycle")
	}
	if got.MaxDepth != 0 {
		t.Errorf("max depth = %d", got.MaxDepth)
	}
}

func TestComputeSkipsDanglingEdges(t *testing.T) {
	els := append(testutil.Pathway("p", 3),
		testutil.DanglingEdge("ghost", "p-n2", "nowhere"))
	store := testutil.MustStore(t, els)
	got := analysis.Compute(store)

	if got.Edges != 3 {
		t.Errorf("edges = %d, want dangling edge counted in totals", got.Edges)
	}
	if got.MaxDepth != 2 {
		t.Errorf("max depth = %d, dangling edge must not extend the backbone", got.MaxDepth)
	}
}
