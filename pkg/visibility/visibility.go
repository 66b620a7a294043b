// Package visibility orchestrates show/hide of semantically-typed element
// subsets (genes, compounds, GO processes, ...) keyed off node types,
// either across the whole network or scoped to the current selection.
// First "show" of a type fetches its elements from upstream; subsequent
// toggles reuse the merged elements (the merge engine dedupes, so a
// refetch is harmless but avoided).
package visibility

import (
	"context"
	"fmt"
	"sync"

	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/merge"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Scope selects which part of the network a toggle affects.
type Scope int

// Toggle scopes.
const (
	// ScopeAll toggles every element of the type.
	ScopeAll Scope = iota
	// ScopeSelection toggles only elements one hop from the currently
	// selected nodes; everything else keeps its visibility.
	ScopeSelection
)

// Fetcher loads the elements of one semantic type for the given anchor
// nodes. The session adapts the datasource client to this.
type Fetcher interface {
	FetchByType(ctx context.Context, t model.NodeType, anchorIDs []string) ([]model.RawElement, error)
}

// Controller tracks a visible/hidden flag per node type and applies
// endpoint-gated edge visibility around it.
type Controller struct {
	store  *graphstore.Store
	engine *merge.Engine
	fetch  Fetcher

	mu      sync.Mutex
	visible map[model.NodeType]bool
	loaded  map[model.NodeType]bool
	shown   map[model.NodeType][]string // element ids revealed by the last show
}

// NewController creates a controller; all types start hidden and
// unloaded. fetch may be nil when the caller only ever toggles types whose
// elements are already merged.
func NewController(store *graphstore.Store, engine *merge.Engine, fetch Fetcher) *Controller {
	return &Controller{
		store:   store,
		engine:  engine,
		fetch:   fetch,
		visible: make(map[model.NodeType]bool),
		loaded:  make(map[model.NodeType]bool),
		shown:   make(map[model.NodeType][]string),
	}
}

// Visible reports whether the type is currently toggled on.
func (c *Controller) Visible(t model.NodeType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible[t]
}

// Flags returns a copy of the per-type visibility flags, for export.
func (c *Controller) Flags() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.visible))
	for t, v := range c.visible {
		out[string(t)] = v
	}
	return out
}

// SetFlags seeds the per-type flags (import path). It does not fetch or
// restyle; callers follow up with Toggle as needed.
func (c *Controller) SetFlags(flags map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for t, v := range flags {
		c.visible[model.NodeType(t)] = v
		if v {
			c.loaded[model.NodeType(t)] = true
		}
	}
}

// Toggle flips the visibility of the given type within the given scope.
// With no graph store the call degrades to a logged no-op rather than a
// panic.
func (c *Controller) Toggle(ctx context.Context, t model.NodeType, scope Scope) error {
	if c == nil || c.store == nil {
		debug.Log("visibility: toggle %s ignored, no graph store", t)
		return nil
	}

	c.mu.Lock()
	show := !c.visible[t]
	c.visible[t] = show
	needFetch := show && !c.loaded[t] && c.fetch != nil
	c.mu.Unlock()

	if needFetch {
		anchors := c.anchorIDs(scope)
		raws, err := c.fetch.FetchByType(ctx, t, anchors)
		if err != nil {
			// Revert the flag so the next toggle retries the fetch.
			c.mu.Lock()
			c.visible[t] = false
			c.mu.Unlock()
			return fmt.Errorf("loading %s elements: %w", t, err)
		}
		c.engine.Apply(raws, c.store)
		c.mu.Lock()
		c.loaded[t] = true
		c.mu.Unlock()
	}

	if show {
		c.show(t, scope)
	} else {
		c.hide(t, scope)
	}
	return nil
}

// anchorIDs returns the node ids a scoped fetch or toggle works from.
func (c *Controller) anchorIDs(scope Scope) []string {
	if scope == ScopeSelection {
		var nodes []string
		for _, id := range c.store.Selected() {
			if _, ok := c.store.Node(id); ok {
				nodes = append(nodes, id)
			}
		}
		return nodes
	}
	var ids []string
	for _, n := range c.store.Nodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

// inScope returns the set of node ids of type t a toggle may touch: all of
// them, or only those one hop from the selected nodes.
func (c *Controller) inScope(t model.NodeType, scope Scope) []string {
	typed := c.store.NodesByType(t)
	if scope == ScopeAll {
		ids := make([]string, 0, len(typed))
		for _, n := range typed {
			ids = append(ids, n.ID)
		}
		return ids
	}

	reachable := make(map[string]struct{})
	for _, sel := range c.anchorIDs(ScopeSelection) {
		reachable[sel] = struct{}{}
		for _, nb := range c.store.Neighbors(sel) {
			reachable[nb] = struct{}{}
		}
	}
	var ids []string
	for _, n := range typed {
		if _, ok := reachable[n.ID]; ok {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// show reveals the type's nodes in scope, then reveals edges that touch
// them: an edge is shown when one endpoint is of the target type and the
// other endpoint is already visible (permissive show, still
// endpoint-gated; dangling edges stay hidden until complete).
func (c *Controller) show(t model.NodeType, scope Scope) {
	nodeIDs := c.inScope(t, scope)
	if len(nodeIDs) == 0 {
		debug.Log("visibility: show %s matched no nodes", t)
	}
	revealed := c.store.SetHidden(nodeIDs, false)

	typed := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		typed[id] = struct{}{}
	}
	var edgeIDs []string
	for _, e := range c.store.Edges() {
		_, srcTyped := typed[e.Source]
		_, dstTyped := typed[e.Target]
		if !srcTyped && !dstTyped {
			continue
		}
		if !c.store.EdgeComplete(e.ID) {
			continue
		}
		if c.store.IsHidden(e.Source) || c.store.IsHidden(e.Target) {
			continue
		}
		edgeIDs = append(edgeIDs, e.ID)
	}
	revealed = append(revealed, c.store.SetHidden(edgeIDs, false)...)

	c.mu.Lock()
	c.shown[t] = revealed
	c.mu.Unlock()
}

// hide conceals only the elements the last show revealed (falling back to
// every in-scope node of the type), then conservatively hides any edge
// with a hidden endpoint. Elements are hidden, not removed.
func (c *Controller) hide(t model.NodeType, scope Scope) {
	c.mu.Lock()
	ids := c.shown[t]
	delete(c.shown, t)
	c.mu.Unlock()
	if len(ids) == 0 {
		ids = c.inScope(t, scope)
	}
	c.store.SetHidden(ids, true)

	var edgeIDs []string
	for _, e := range c.store.Edges() {
		if c.store.IsHidden(e.ID) {
			continue
		}
		if c.store.IsHidden(e.Source) || c.store.IsHidden(e.Target) {
			edgeIDs = append(edgeIDs, e.ID)
		}
	}
	c.store.SetHidden(edgeIDs, true)
}

// RemoveType hard-deletes every element of the type from the graph (the
// "remove" flow, which must also refresh dependent tables — the resulting
// ElementsRemoved event drives that). The type becomes unloaded so a later
// show refetches.
func (c *Controller) RemoveType(t model.NodeType) []string {
	if c == nil || c.store == nil {
		debug.Log("visibility: remove %s ignored, no graph store", t)
		return nil
	}
	var ids []string
	for _, n := range c.store.NodesByType(t) {
		ids = append(ids, n.ID)
	}
	removed := c.store.Remove(ids...)
	c.mu.Lock()
	c.visible[t] = false
	c.loaded[t] = false
	delete(c.shown, t)
	c.mu.Unlock()
	return removed
}
