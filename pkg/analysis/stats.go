// Package analysis computes structural statistics over an AOP network:
// roots, terminal outcomes, pathway depth and connectivity. Used by the
// robot-mode summary and the snapshot header.
package analysis

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// NetworkStats summarizes the pathway structure of a network.
type NetworkStats struct {
	Nodes      int  `json:"nodes"`
	Edges      int  `json:"edges"`
	MIEs       int  `json:"mies"`
	KeyEvents  int  `json:"key_events"`
	Outcomes   int  `json:"adverse_outcomes"`
	Roots      int  `json:"roots"`  // nodes with no incoming KER
	Leaves     int  `json:"leaves"` // nodes with no outgoing KER
	MaxDepth   int  `json:"max_depth"`
	Components int  `json:"components"`
	HasCycle   bool `json:"has_cycle"`
}

// Compute derives network statistics from the KER backbone of the store.
// Annotation and interaction edges do not contribute to depth or degree;
// they describe nodes rather than pathway order.
func Compute(store *graphstore.Store) NetworkStats {
	stats := NetworkStats{
		Nodes: store.NodeCount(),
		Edges: store.EdgeCount(),
	}

	for _, n := range store.Nodes() {
		switch n.Type {
		case model.NodeTypeMIE:
			stats.MIEs++
		case model.NodeTypeKeyEvent:
			stats.KeyEvents++
		case model.NodeTypeAdverseOutcome:
			stats.Outcomes++
		}
	}

	g := simple.NewDirectedGraph()
	u := simple.NewUndirectedGraph()
	index := make(map[string]int64)
	next := int64(0)
	nodeID := func(id string) int64 {
		if gid, ok := index[id]; ok {
			return gid
		}
		gid := next
		next++
		index[id] = gid
		g.AddNode(simple.Node(gid))
		u.AddNode(simple.Node(gid))
		return gid
	}
	for _, n := range store.Nodes() {
		nodeID(n.ID)
	}

	indeg := make(map[string]int)
	outdeg := make(map[string]int)
	for _, e := range store.Edges() {
		if e.Type != model.EdgeTypeKER {
			continue
		}
		if _, ok := store.Node(e.Source); !ok {
			continue
		}
		if _, ok := store.Node(e.Target); !ok {
			continue
		}
		if e.Source == e.Target {
			stats.HasCycle = true
			continue
		}
		from := nodeID(e.Source)
		to := nodeID(e.Target)
		if g.HasEdgeFromTo(from, to) {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
		u.SetEdge(u.NewEdge(u.Node(from), u.Node(to)))
		outdeg[e.Source]++
		indeg[e.Target]++
	}

	for _, n := range store.Nodes() {
		if indeg[n.ID] == 0 {
			stats.Roots++
		}
		if outdeg[n.ID] == 0 {
			stats.Leaves++
		}
	}

	stats.Components = len(topo.ConnectedComponents(u))

	sorted, err := topo.Sort(g)
	if err != nil {
		stats.HasCycle = true
		return stats
	}

	// Longest path over the topological order.
	depth := make(map[int64]int, len(sorted))
	for _, n := range sorted {
		d := 0
		preds := g.To(n.ID())
		for preds.Next() {
			if pd := depth[preds.Node().ID()]; pd+1 > d {
				d = pd + 1
			}
		}
		depth[n.ID()] = d
		if d > stats.MaxDepth {
			stats.MaxDepth = d
		}
	}

	return stats
}
