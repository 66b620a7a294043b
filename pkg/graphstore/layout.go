package graphstore

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Layout spacing, in abstract canvas units. Exported so the snapshot
// renderer can scale consistently.
const (
	LayoutColumnGap = 180.0
	LayoutRowGap    = 120.0
	LayoutMargin    = 60.0
)

// ComputeLayout produces positions for every node using topological
// layering: a node sits one row below its deepest predecessor, which puts
// molecular initiating events at the top and adverse outcomes at the
// bottom of a well-formed pathway. Dangling edges are skipped. When the
// graph contains cycles the layering falls back to a plain grid.
func (s *Store) ComputeLayout() map[string]model.Position {
	nodes := s.Nodes()
	edges := s.Edges()
	if len(nodes) == 0 {
		return map[string]model.Position{}
	}

	idx := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = int64(i)
	}

	g := simple.NewDirectedGraph()
	for i := range nodes {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range edges {
		from, okF := idx[e.Source]
		to, okT := idx[e.Target]
		if !okF || !okT || from == to {
			continue // dangling or self edge, not layoutable
		}
		g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	layer := make([]int, len(nodes))
	sorted, err := topo.Sort(g)
	if err != nil {
		return gridLayout(nodes)
	}
	maxLayer := 0
	for _, gn := range sorted {
		id := gn.ID()
		preds := g.To(id)
		l := 0
		for preds.Next() {
			if pl := layer[int(preds.Node().ID())] + 1; pl > l {
				l = pl
			}
		}
		layer[int(id)] = l
		if l > maxLayer {
			maxLayer = l
		}
	}

	// Assign x positions per layer in insertion order, centering each row.
	perLayer := make([][]int, maxLayer+1)
	for i := range nodes {
		l := layer[i]
		perLayer[l] = append(perLayer[l], i)
	}
	widest := 0
	for _, row := range perLayer {
		if len(row) > widest {
			widest = len(row)
		}
	}
	out := make(map[string]model.Position, len(nodes))
	for l, row := range perLayer {
		offset := float64(widest-len(row)) * LayoutColumnGap / 2
		for col, i := range row {
			out[nodes[i].ID] = model.Position{
				X: LayoutMargin + offset + float64(col)*LayoutColumnGap,
				Y: LayoutMargin + float64(l)*LayoutRowGap,
			}
		}
	}
	return out
}

// gridLayout is the cycle fallback: a near-square grid in insertion order.
func gridLayout(nodes []*model.Node) map[string]model.Position {
	cols := int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	out := make(map[string]model.Position, len(nodes))
	for i, n := range nodes {
		out[n.ID] = model.Position{
			X: LayoutMargin + float64(i%cols)*LayoutColumnGap,
			Y: LayoutMargin + float64(i/cols)*LayoutRowGap,
		}
	}
	return out
}

// RunLayout computes and applies a fresh layout, publishing LayoutApplied.
func (s *Store) RunLayout() map[string]model.Position {
	pos := s.ComputeLayout()
	s.ApplyLayout(pos)
	return pos
}

// ApplyLayout stores the given positions and publishes LayoutApplied.
// Positions for unknown ids are ignored.
func (s *Store) ApplyLayout(pos map[string]model.Position) {
	s.mu.Lock()
	var ids []string
	for id, p := range pos {
		if _, ok := s.nodes[id]; !ok {
			continue
		}
		s.positions[id] = p
		ids = append(ids, id)
	}
	s.mu.Unlock()
	if len(ids) > 0 {
		s.bus.Publish(events.Event{Kind: events.LayoutApplied, IDs: ids})
	}
}

// SetPosition places a single node.
func (s *Store) SetPosition(id string, p model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; ok {
		s.positions[id] = p
	}
}

// Position returns the stored position of a node.
func (s *Store) Position(id string) (model.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	return p, ok
}

// Positions returns a copy of all stored node positions.
func (s *Store) Positions() map[string]model.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Position, len(s.positions))
	for id, p := range s.positions {
		out[id] = p
	}
	return out
}
