package aop

import (
	"sync"

	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Mode is the filter engine state.
type Mode int

// Filter modes. SingleFilter and Grouped are mutually exclusive: entering
// one always leaves the other.
const (
	Unfiltered Mode = iota
	SingleFilter
	Grouped
)

func (m Mode) String() string {
	switch m {
	case SingleFilter:
		return "single"
	case Grouped:
		return "grouped"
	default:
		return "unfiltered"
	}
}

// Status reports the outcome of a filter operation.
type Status int

// Operation outcomes.
const (
	StatusApplied Status = iota
	StatusCleared
	StatusNoMatches
)

// Styling constants for filtered graphs.
const (
	dimOpacity    = 0.15
	accentBorder  = "#e74c3c"
	neutralBorder = "#9aa0a6"
)

// DefaultPalette is the fixed group color cycle. Groups beyond its length
// wrap around.
var DefaultPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// Engine drives the filter state machine against a graph store.
type Engine struct {
	store   *graphstore.Store
	palette []string

	mu      sync.Mutex
	mode    Mode
	single  string
	grouped []string // canonical ids in toggle order; first match wins coloring
}

// Option configures an Engine.
type Option func(*Engine)

// WithPalette overrides the group color palette.
func WithPalette(colors []string) Option {
	return func(e *Engine) {
		if len(colors) > 0 {
			e.palette = colors
		}
	}
}

// NewEngine creates an engine in the Unfiltered mode.
func NewEngine(store *graphstore.Store, opts ...Option) *Engine {
	e := &Engine{store: store, palette: DefaultPalette}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the current filter mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Single returns the active exclusive filter id, if any.
func (e *Engine) Single() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.single
}

// GroupedIDs returns the grouped AOP ids in toggle order.
func (e *Engine) GroupedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.grouped...)
}

// Matches reports whether the node belongs to the given canonical AOP id.
func Matches(n *model.Node, canonical string) bool {
	for _, id := range NormalizeAll(n.AOPRefs()) {
		if id == canonical {
			return true
		}
	}
	return false
}

// ToggleFilter applies or clears the exclusive single-AOP filter. Clicking
// the active id again returns to Unfiltered and restores pre-filter
// styles; a different id replaces the filter. When zero nodes match, the
// engine reports StatusNoMatches and leaves graph state untouched.
func (e *Engine) ToggleFilter(ref string) Status {
	canonical, ok := Normalize(ref)
	if !ok {
		return StatusNoMatches
	}

	e.mu.Lock()
	if e.mode == SingleFilter && e.single == canonical {
		e.mode = Unfiltered
		e.single = ""
		e.mu.Unlock()
		e.store.RestoreBaseStyles()
		e.publish("cleared")
		return StatusCleared
	}
	e.mu.Unlock()

	matched := false
	for _, n := range e.store.Nodes() {
		if Matches(n, canonical) {
			matched = true
			break
		}
	}
	if !matched {
		debug.Log("aop: no nodes match %s, filter unchanged", canonical)
		return StatusNoMatches
	}

	e.mu.Lock()
	e.mode = SingleFilter
	e.single = canonical
	e.grouped = nil
	e.mu.Unlock()

	e.apply()
	e.publish("filter " + canonical)
	return StatusApplied
}

// ToggleGroup adds or removes one AOP id from the grouped set. Grouping
// always clears an active single filter (the modes are mutually
// exclusive); removing the last grouped id returns to Unfiltered.
func (e *Engine) ToggleGroup(ref string) Status {
	canonical, ok := Normalize(ref)
	if !ok {
		return StatusNoMatches
	}

	e.mu.Lock()
	e.single = ""
	idx := -1
	for i, id := range e.grouped {
		if id == canonical {
			idx = i
			break
		}
	}
	if idx >= 0 {
		e.grouped = append(e.grouped[:idx], e.grouped[idx+1:]...)
	} else {
		e.grouped = append(e.grouped, canonical)
	}
	if len(e.grouped) == 0 {
		e.mode = Unfiltered
		e.mu.Unlock()
		e.store.RestoreBaseStyles()
		e.publish("cleared")
		return StatusCleared
	}
	e.mode = Grouped
	e.mu.Unlock()

	e.apply()
	e.publish("grouped")
	return StatusApplied
}

// GroupAll is the idempotent bulk toggle: when every id in the universe is
// already grouped it clears all groups, otherwise it groups exactly the
// universe. The universe is normally the set of AOP ids observed in the
// current table data.
func (e *Engine) GroupAll(universe []string) Status {
	ids := NormalizeAll(universe)
	if len(ids) == 0 {
		return StatusNoMatches
	}

	e.mu.Lock()
	have := make(map[string]struct{}, len(e.grouped))
	for _, id := range e.grouped {
		have[id] = struct{}{}
	}
	all := len(e.grouped) == len(ids)
	if all {
		for _, id := range ids {
			if _, ok := have[id]; !ok {
				all = false
				break
			}
		}
	}
	if all && e.mode == Grouped {
		e.mode = Unfiltered
		e.grouped = nil
		e.single = ""
		e.mu.Unlock()
		e.store.RestoreBaseStyles()
		e.publish("cleared")
		return StatusCleared
	}
	e.mode = Grouped
	e.grouped = ids
	e.single = ""
	e.mu.Unlock()

	e.apply()
	e.publish("grouped all")
	return StatusApplied
}

// Clear returns to Unfiltered, restoring captured styles.
func (e *Engine) Clear() {
	e.mu.Lock()
	was := e.mode
	e.mode = Unfiltered
	e.single = ""
	e.grouped = nil
	e.mu.Unlock()
	if was != Unfiltered {
		e.store.RestoreBaseStyles()
		e.publish("cleared")
	}
}

// Reapply recomputes styling for the current mode. Called after merges so
// newly added elements pick up the active filter.
func (e *Engine) Reapply() {
	e.mu.Lock()
	mode := e.mode
	e.mu.Unlock()
	if mode != Unfiltered {
		e.apply()
	}
}

// GroupColor returns the palette color assigned to a grouped AOP id, or ""
// when the id is not grouped.
func (e *Engine) GroupColor(canonical string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, id := range e.grouped {
		if id == canonical {
			return e.palette[i%len(e.palette)]
		}
	}
	return ""
}

func (e *Engine) publish(msg string) {
	e.store.Bus().Publish(events.Event{Kind: events.FilterChanged, Message: msg})
}

// apply derives styles from the current state and writes them to the
// store. Pre-filter styles are captured once, before the first filter is
// ever applied; they are the restoration target for Unfiltered.
func (e *Engine) apply() {
	e.store.CaptureBaseStyles()

	e.mu.Lock()
	mode := e.mode
	single := e.single
	grouped := append([]string(nil), e.grouped...)
	palette := e.palette
	e.mu.Unlock()

	styles := ComputeStyles(mode, single, grouped, palette, e.store.Nodes(), e.store.Edges())
	for id, st := range styles {
		e.store.SetStyle(id, st)
	}
}

// ComputeStyles is the pure styling derivation for a filter state.
//
// SingleFilter: matching nodes get full opacity and an accent border,
// everything else is dimmed; an edge is accented only when both endpoints
// match. Grouped: each grouped AOP takes a palette color (cycling); a node
// matching several grouped AOPs takes the first match in toggle order;
// edges take the color of their source endpoint when both endpoints match
// some grouped AOP, otherwise they are dimmed with a neutral border.
func ComputeStyles(mode Mode, single string, grouped, palette []string, nodes []*model.Node, edges []*model.Edge) map[string]graphstore.Style {
	styles := make(map[string]graphstore.Style, len(nodes)+len(edges))
	if mode == Unfiltered {
		return styles
	}

	nodeColor := make(map[string]string, len(nodes)) // node id -> group color
	nodeMatch := make(map[string]bool, len(nodes))

	for _, n := range nodes {
		switch mode {
		case SingleFilter:
			if Matches(n, single) {
				nodeMatch[n.ID] = true
				styles[n.ID] = graphstore.Style{Opacity: 1, BorderColor: accentBorder, BorderWidth: 3}
			} else {
				styles[n.ID] = graphstore.Style{Opacity: dimOpacity, BorderColor: neutralBorder}
			}
		case Grouped:
			color := ""
			for i, id := range grouped {
				if Matches(n, id) {
					color = palette[i%len(palette)]
					break
				}
			}
			if color != "" {
				nodeMatch[n.ID] = true
				nodeColor[n.ID] = color
				styles[n.ID] = graphstore.Style{Opacity: 1, Color: color, BorderColor: color, BorderWidth: 3}
			} else {
				styles[n.ID] = graphstore.Style{Opacity: dimOpacity, BorderColor: neutralBorder}
			}
		}
	}

	for _, edge := range edges {
		bothMatch := nodeMatch[edge.Source] && nodeMatch[edge.Target]
		switch {
		case mode == SingleFilter && bothMatch:
			styles[edge.ID] = graphstore.Style{Opacity: 1, Color: accentBorder, BorderWidth: 2}
		case mode == Grouped && bothMatch:
			styles[edge.ID] = graphstore.Style{Opacity: 1, Color: nodeColor[edge.Source], BorderWidth: 2}
		default:
			styles[edge.ID] = graphstore.Style{Opacity: dimOpacity, Color: neutralBorder}
		}
	}
	return styles
}
