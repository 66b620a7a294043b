// Package selection keeps the table-side and graph-side selections
// equivalent, in both directions, without feedback loops. The projection
// functions are pure; the Synchronizer adds the coordination rule: a pass
// triggered by a table click writes the graph selection silently, and a
// pass triggered by a graph selection event writes only the table side.
package selection

import (
	"sort"
	"sync"

	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
)

// Sentinel marks a row endpoint with no corresponding graph node.
const Sentinel = "N/A"

// Row is one rendered table row. SourceID/TargetID tie the row back to
// graph nodes; the remaining fields are display cells.
type Row struct {
	SourceID     string
	SourceLabel  string
	Relationship string
	TargetID     string
	TargetLabel  string
	AOPs         []string
}

// Modifier describes how a click combines with the existing selection.
type Modifier int

// Click modifiers.
const (
	ModNone   Modifier = iota // plain click: select exactly this row
	ModToggle                 // ctrl/cmd: toggle membership, keep others
	ModRange                  // shift: contiguous range from the anchor
)

// EdgeLookup resolves the edge connecting an exact source/target pair.
// *graphstore.Store satisfies it.
type EdgeLookup interface {
	EdgeBetween(source, target string) (string, bool)
}

// TableToGraph projects selected rows onto graph element ids: each row
// contributes its source and target node ids (skipping the sentinel) plus
// the id of any edge connecting that exact pair.
func TableToGraph(selectedRows map[int]struct{}, rows []Row, edges EdgeLookup) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" || id == Sentinel {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range rows {
		if _, ok := selectedRows[i]; !ok {
			continue
		}
		r := rows[i]
		add(r.SourceID)
		add(r.TargetID)
		if edges != nil && r.SourceID != "" && r.SourceID != Sentinel &&
			r.TargetID != "" && r.TargetID != Sentinel {
			if eid, ok := edges.EdgeBetween(r.SourceID, r.TargetID); ok {
				add(eid)
			}
		}
	}
	return ids
}

// GraphToRows projects selected element ids onto row indices: a row is
// included when its source or target id is in the set.
func GraphToRows(selected map[string]struct{}, rows []Row) map[int]struct{} {
	out := make(map[int]struct{})
	for i, r := range rows {
		if _, ok := selected[r.SourceID]; ok {
			out[i] = struct{}{}
			continue
		}
		if _, ok := selected[r.TargetID]; ok {
			out[i] = struct{}{}
		}
	}
	return out
}

// Synchronizer owns the table-side selection state and mirrors it against
// the graph store.
type Synchronizer struct {
	store *graphstore.Store

	mu       sync.Mutex
	rows     []Row
	selected map[int]struct{}
	anchor   int
	updating bool

	onRowsChanged func([]int)
}

// NewSynchronizer wires a synchronizer to the store and subscribes it to
// graph selection events.
func NewSynchronizer(store *graphstore.Store) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		selected: make(map[int]struct{}),
		anchor:   -1,
	}
	store.Bus().Subscribe(events.SelectionChanged, s.onGraphSelection)
	return s
}

// OnRowsChanged registers a callback fired (with the sorted selected row
// indices) whenever a graph-side change reprojects the table selection.
func (s *Synchronizer) OnRowsChanged(fn func([]int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRowsChanged = fn
}

// SetRows replaces the backing row data (after a table refresh) and
// reprojects the current graph selection onto the new rows.
func (s *Synchronizer) SetRows(rows []Row) {
	sel := make(map[string]struct{})
	for _, id := range s.store.Selected() {
		sel[id] = struct{}{}
	}
	s.mu.Lock()
	s.rows = rows
	s.selected = GraphToRows(sel, rows)
	if s.anchor >= len(rows) {
		s.anchor = -1
	}
	s.mu.Unlock()
}

// Rows returns the current backing rows.
func (s *Synchronizer) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// SelectedRows returns the sorted indices of selected rows.
func (s *Synchronizer) SelectedRows() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIndices(s.selected)
}

// ClickRow applies one table click and pushes the resulting selection to
// the graph store without emitting a graph selection event (the guard
// against table->graph->table ping-pong).
func (s *Synchronizer) ClickRow(i int, mod Modifier) {
	s.mu.Lock()
	if i < 0 || i >= len(s.rows) {
		s.mu.Unlock()
		return
	}
	switch mod {
	case ModToggle:
		if _, ok := s.selected[i]; ok {
			delete(s.selected, i)
		} else {
			s.selected[i] = struct{}{}
		}
		s.anchor = i
	case ModRange:
		anchor := s.anchor
		if anchor < 0 || anchor >= len(s.rows) {
			anchor = i
		}
		s.selected = rangeRun(s.selected, anchor, i)
	default:
		s.selected = map[int]struct{}{i: {}}
		s.anchor = i
	}
	rows := s.rows
	selected := copyIndexSet(s.selected)
	s.updating = true
	s.mu.Unlock()

	ids := TableToGraph(selected, rows, s.store)
	s.store.SetSelectionSilent(ids)

	s.mu.Lock()
	s.updating = false
	s.mu.Unlock()
}

// ClickElement applies one graph-surface click. The store emits a
// SelectionChanged event, which flows back through onGraphSelection and
// updates the table side exactly once.
func (s *Synchronizer) ClickElement(id string, mod Modifier) {
	switch mod {
	case ModToggle:
		s.store.ToggleSelected(id)
	default:
		s.store.SetSelection([]string{id})
	}
}

// onGraphSelection mirrors a graph-side selection change onto the table.
func (s *Synchronizer) onGraphSelection(e events.Event) {
	s.mu.Lock()
	if s.updating {
		s.mu.Unlock()
		return
	}
	sel := make(map[string]struct{}, len(e.IDs))
	for _, id := range e.IDs {
		sel[id] = struct{}{}
	}
	s.selected = GraphToRows(sel, s.rows)
	fn := s.onRowsChanged
	indices := sortedIndices(s.selected)
	s.mu.Unlock()

	if fn != nil {
		fn(indices)
	}
}

// rangeRun computes the shift-click result: the contiguous run covering
// [min(anchor,current), max(anchor,current)], extended by previously
// selected rows only where they are directly contiguous with the run.
// Disjoint prior rows are dropped so the result is a single run.
func rangeRun(prior map[int]struct{}, anchor, current int) map[int]struct{} {
	lo, hi := anchor, current
	if lo > hi {
		lo, hi = hi, lo
	}
	for {
		if _, ok := prior[lo-1]; ok {
			lo--
			continue
		}
		break
	}
	for {
		if _, ok := prior[hi+1]; ok {
			hi++
			continue
		}
		break
	}
	out := make(map[int]struct{}, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out[i] = struct{}{}
	}
	return out
}

func sortedIndices(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func copyIndexSet(set map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(set))
	for i := range set {
		out[i] = struct{}{}
	}
	return out
}
