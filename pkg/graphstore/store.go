// Package graphstore holds the single shared mutable graph state: every
// element in the visible network, plus selection, per-element style,
// visibility and layout positions. All mutation paths go through this
// package so that mutation events fire consistently on the bus and the
// update scheduler observes every change.
package graphstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// ErrDuplicateID is returned when an insertion would collide with an
// existing element id. Callers treating merges as idempotent ignore it.
var ErrDuplicateID = errors.New("duplicate element id")

// Store is the in-memory graph state. Methods are safe for concurrent use;
// events are published outside the internal lock so handlers may call back
// into the store.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*model.Node
	edges map[string]*model.Edge
	order []string // insertion order over all ids, for deterministic iteration

	selected  map[string]struct{}
	hidden    map[string]struct{}
	positions map[string]model.Position

	styles       map[string]Style
	base         map[string]Style
	baseCaptured bool

	bus *events.Bus
}

// New creates an empty store publishing on the given bus. A nil bus is
// allowed; events are then dropped.
func New(bus *events.Bus) *Store {
	if bus == nil {
		bus = events.NewBus()
	}
	return &Store{
		nodes:     make(map[string]*model.Node),
		edges:     make(map[string]*model.Edge),
		selected:  make(map[string]struct{}),
		hidden:    make(map[string]struct{}),
		positions: make(map[string]model.Position),
		styles:    make(map[string]Style),
		base:      make(map[string]Style),
		bus:       bus,
	}
}

// Bus returns the event bus the store publishes on.
func (s *Store) Bus() *events.Bus { return s.bus }

// Add inserts a single element. Returns ErrDuplicateID (and changes
// nothing) when the id is already present.
func (s *Store) Add(el model.Element) error {
	added, err := s.addLocked([]model.Element{el})
	if err != nil {
		return err
	}
	if len(added) > 0 {
		s.bus.Publish(events.Event{Kind: events.ElementsAdded, IDs: added})
	}
	return nil
}

// AddBatch inserts elements in order, skipping id collisions silently, and
// publishes a single ElementsAdded event for everything inserted.
func (s *Store) AddBatch(els []model.Element) []string {
	added, _ := s.addLocked(els)
	if len(added) > 0 {
		s.bus.Publish(events.Event{Kind: events.ElementsAdded, IDs: added})
	}
	return added
}

func (s *Store) addLocked(els []model.Element) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added []string
	var firstErr error
	for _, el := range els {
		id := el.ElementID()
		if _, ok := s.nodes[id]; ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			continue
		}
		if _, ok := s.edges[id]; ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			continue
		}
		switch v := el.(type) {
		case *model.Node:
			s.nodes[id] = v
		case *model.Edge:
			s.edges[id] = v
		default:
			continue
		}
		s.order = append(s.order, id)
		added = append(added, id)
	}
	return added, firstErr
}

// Remove deletes the given elements. Removing a node also removes its
// incident edges; selection, style, position and visibility bookkeeping
// for removed ids is dropped. Publishes one ElementsRemoved event.
func (s *Store) Remove(ids ...string) []string {
	s.mu.Lock()
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.nodes[id]; ok {
			doomed[id] = struct{}{}
			for eid, e := range s.edges {
				if e.Source == id || e.Target == id {
					doomed[eid] = struct{}{}
				}
			}
		} else if _, ok := s.edges[id]; ok {
			doomed[id] = struct{}{}
		}
	}
	var removed []string
	if len(doomed) > 0 {
		keep := s.order[:0]
		for _, id := range s.order {
			if _, gone := doomed[id]; gone {
				removed = append(removed, id)
				delete(s.nodes, id)
				delete(s.edges, id)
				delete(s.selected, id)
				delete(s.hidden, id)
				delete(s.positions, id)
				delete(s.styles, id)
				delete(s.base, id)
				continue
			}
			keep = append(keep, id)
		}
		s.order = keep
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.bus.Publish(events.Event{Kind: events.ElementsRemoved, IDs: removed})
	}
	return removed
}

// HasID reports whether any element (node or edge) has the given id.
func (s *Store) HasID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; ok {
		return true
	}
	_, ok := s.edges[id]
	return ok
}

// AllIDs returns every element id in insertion order.
func (s *Store) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the total element count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes) + len(s.edges)
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id.
func (s *Store) Edge(id string) (*model.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Node, 0, len(s.nodes))
	for _, id := range s.order {
		if n, ok := s.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns all edges in insertion order.
func (s *Store) Edges() []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Edge, 0, len(s.edges))
	for _, id := range s.order {
		if e, ok := s.edges[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// NodesByClass returns nodes carrying the given class, in insertion order.
func (s *Store) NodesByClass(class string) []*model.Node {
	var out []*model.Node
	for _, n := range s.Nodes() {
		if n.HasClass(class) {
			out = append(out, n)
		}
	}
	return out
}

// NodesByType returns nodes of the given type, in insertion order.
func (s *Store) NodesByType(t model.NodeType) []*model.Node {
	var out []*model.Node
	for _, n := range s.Nodes() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// EdgeBetween returns the id of an edge connecting the exact source/target
// pair, if one exists.
func (s *Store) EdgeBetween(source, target string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if e, ok := s.edges[id]; ok && e.Source == source && e.Target == target {
			return id, true
		}
	}
	return "", false
}

// IncidentEdges returns every edge touching the given node id.
func (s *Store) IncidentEdges(nodeID string) []*model.Edge {
	var out []*model.Edge
	for _, e := range s.Edges() {
		if e.Source == nodeID || e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the ids of nodes one hop away from the given node.
func (s *Store) Neighbors(nodeID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range s.Edges() {
		var other string
		switch nodeID {
		case e.Source:
			other = e.Target
		case e.Target:
			other = e.Source
		default:
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}

// EdgeComplete reports whether both endpoints of the edge exist as nodes.
// Dangling edges (missing an endpoint) are retained but incomplete until
// the endpoint is merged.
func (s *Store) EdgeComplete(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return false
	}
	_, srcOK := s.nodes[e.Source]
	_, dstOK := s.nodes[e.Target]
	return srcOK && dstOK
}
