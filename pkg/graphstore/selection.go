package graphstore

import (
	"sort"

	"github.com/vhp4safety/aopgraph/pkg/events"
)

// Selected returns the currently selected element ids, sorted.
func (s *Store) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsSelected reports whether the element is selected.
func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SetSelection replaces the selection and publishes SelectionChanged.
// Ids not present in the graph are ignored.
func (s *Store) SetSelection(ids []string) {
	changed := s.setSelectionLocked(ids)
	if changed {
		s.bus.Publish(events.Event{Kind: events.SelectionChanged, IDs: s.Selected()})
	}
}

// SetSelectionSilent replaces the selection without publishing. Used by
// the selection synchronizer to break the table<->graph feedback loop.
func (s *Store) SetSelectionSilent(ids []string) {
	s.setSelectionLocked(ids)
}

func (s *Store) setSelectionLocked(ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, isNode := s.nodes[id]
		_, isEdge := s.edges[id]
		if isNode || isEdge {
			next[id] = struct{}{}
		}
	}
	if len(next) == len(s.selected) {
		same := true
		for id := range next {
			if _, ok := s.selected[id]; !ok {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	s.selected = next
	return true
}

// ToggleSelected flips the selection state of one element and publishes
// SelectionChanged.
func (s *Store) ToggleSelected(id string) {
	s.mu.Lock()
	_, isNode := s.nodes[id]
	_, isEdge := s.edges[id]
	if !isNode && !isEdge {
		s.mu.Unlock()
		return
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.mu.Unlock()
	s.bus.Publish(events.Event{Kind: events.SelectionChanged, IDs: s.Selected()})
}

// ClearSelection empties the selection and publishes SelectionChanged if
// anything was selected.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	had := len(s.selected) > 0
	s.selected = make(map[string]struct{})
	s.mu.Unlock()
	if had {
		s.bus.Publish(events.Event{Kind: events.SelectionChanged})
	}
}

// SetHidden marks elements hidden or visible and publishes one
// VisibilityChanged event listing the ids whose state actually changed.
func (s *Store) SetHidden(ids []string, hidden bool) []string {
	s.mu.Lock()
	var changed []string
	for _, id := range ids {
		_, isNode := s.nodes[id]
		_, isEdge := s.edges[id]
		if !isNode && !isEdge {
			continue
		}
		_, cur := s.hidden[id]
		if cur == hidden {
			continue
		}
		if hidden {
			s.hidden[id] = struct{}{}
		} else {
			delete(s.hidden, id)
		}
		changed = append(changed, id)
	}
	s.mu.Unlock()
	if len(changed) > 0 {
		s.bus.Publish(events.Event{Kind: events.VisibilityChanged, IDs: changed})
	}
	return changed
}

// IsHidden reports whether the element is hidden.
func (s *Store) IsHidden(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hidden[id]
	return ok
}

// VisibleNodeIDs returns ids of nodes not currently hidden.
func (s *Store) VisibleNodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.order {
		if _, ok := s.nodes[id]; !ok {
			continue
		}
		if _, hid := s.hidden[id]; hid {
			continue
		}
		out = append(out, id)
	}
	return out
}
