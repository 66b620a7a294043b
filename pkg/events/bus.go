// Package events provides the typed in-process event bus that decouples
// the graph store from the components reacting to it (scheduler, selection
// synchronizer, tables). Components subscribe to event kinds instead of
// binding to a rendering library's event names, which keeps them testable
// without one.
package events

import "sync"

// Kind identifies an event category.
type Kind string

// Event kinds published by the engine.
const (
	ElementsAdded     Kind = "elements_added"
	ElementsRemoved   Kind = "elements_removed"
	SelectionChanged  Kind = "selection_changed"
	VisibilityChanged Kind = "visibility_changed"
	MergeWarning      Kind = "merge_warning"
	FilterChanged     Kind = "filter_changed"
	LayoutApplied     Kind = "layout_applied"
	TableRefreshed    Kind = "table_refreshed"
	RefreshFailed     Kind = "refresh_failed"
)

// Event is a single bus message. Only the fields relevant to its kind are
// populated.
type Event struct {
	Kind Kind
	// IDs lists the affected element ids (added, removed, selected...).
	IDs []string
	// Warning carries the payload for MergeWarning events.
	Warning *DanglingEdge
	// Message is a short human-readable note, used by status surfaces.
	Message string
}

// DanglingEdge is the structured payload emitted when an edge is accepted
// despite a missing endpoint (incomplete upstream AOP structure).
type DanglingEdge struct {
	EdgeID          string `json:"edgeId"`
	MissingEndpoint string `json:"missingEndpoint"`
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is a minimal synchronous publish/subscribe hub. Publishing while a
// handler is running is allowed (handlers may trigger further publishes);
// the subscriber list is snapshotted per publish so concurrent subscribe
// calls never corrupt an in-progress delivery.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Kind]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscribe registers a handler for one event kind and returns a function
// that removes the subscription.
func (b *Bus) Subscribe(k Kind, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[k] == nil {
		b.subs[k] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[k][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[k], id)
	}
}

// Publish delivers the event to all current subscribers of its kind.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind]))
	for _, h := range b.subs[e.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
