// Package merge implements the element merge engine: given a batch of
// candidate records fetched from upstream and the current graph, it
// computes the de-duplicated, structurally tolerable subset to insert.
// Merging is idempotent by id, never throws on malformed input, and
// accepts edges with a missing endpoint (incomplete AOP-Wiki structures)
// with a soft warning instead of rejecting them.
package merge

import (
	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// Reason classifies a rejected candidate.
type Reason string

// Rejection reasons.
const (
	ReasonDuplicate Reason = "duplicate"
	ReasonMalformed Reason = "malformed"
)

// Rejection pairs a rejected candidate with why it was rejected.
type Rejection struct {
	Element model.RawElement
	Reason  Reason
}

// Result reports the outcome of one merge pass. Accepted preserves the
// candidates' relative order; nodes need not precede their edges since
// dangling edges are tolerated.
type Result struct {
	Accepted []model.Element
	Rejected []Rejection
	Warnings []events.DanglingEdge
}

// AcceptedIDs returns the ids of the accepted elements, in order.
func (r Result) AcceptedIDs() []string {
	ids := make([]string, len(r.Accepted))
	for i, el := range r.Accepted {
		ids[i] = el.ElementID()
	}
	return ids
}

// IDIndex is the read-only view of the current graph the engine needs.
// *graphstore.Store satisfies it.
type IDIndex interface {
	HasID(id string) bool
	AllIDs() []string
}

// Engine plans and applies merges, publishing dangling-edge warnings on
// the bus for optional user notification.
type Engine struct {
	bus *events.Bus
}

// NewEngine creates a merge engine. A nil bus suppresses warning events.
func NewEngine(bus *events.Bus) *Engine {
	if bus == nil {
		bus = events.NewBus()
	}
	return &Engine{bus: bus}
}

// Plan computes which candidates would be inserted into the given graph
// without mutating anything. Rules:
//
//   - a candidate whose id collides with an existing element, or with an
//     earlier accepted candidate, is rejected as a duplicate (idempotence);
//   - a record that cannot stand as a node or edge is rejected as
//     malformed;
//   - an edge whose source or target is absent from the valid-id set is
//     still accepted, with a DanglingEdge warning per missing endpoint.
//
// The valid-id set is seeded with every id already in the graph (any
// existing element can serve as an endpoint) and grows with each accepted
// candidate.
func (e *Engine) Plan(candidates []model.RawElement, graph IDIndex) Result {
	valid := make(map[string]struct{})
	if graph != nil {
		for _, id := range graph.AllIDs() {
			valid[id] = struct{}{}
		}
	}

	var res Result
	for _, raw := range candidates {
		el, err := raw.Element()
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Element: raw, Reason: ReasonMalformed})
			continue
		}
		id := el.ElementID()
		if _, dup := valid[id]; dup {
			res.Rejected = append(res.Rejected, Rejection{Element: raw, Reason: ReasonDuplicate})
			continue
		}
		if edge, ok := el.(*model.Edge); ok {
			for _, endpoint := range []string{edge.Source, edge.Target} {
				if _, known := valid[endpoint]; !known {
					res.Warnings = append(res.Warnings, events.DanglingEdge{
						EdgeID:          edge.ID,
						MissingEndpoint: endpoint,
					})
				}
			}
		}
		valid[id] = struct{}{}
		res.Accepted = append(res.Accepted, el)
	}
	return res
}

// Store is the mutable graph the engine inserts into. *graphstore.Store
// satisfies it.
type Store interface {
	IDIndex
	AddBatch(els []model.Element) []string
}

// Apply plans the batch against the store and inserts the accepted subset.
// One warning event is published per dangling endpoint. Failed candidates
// never abort the batch.
func (e *Engine) Apply(candidates []model.RawElement, store Store) Result {
	res := e.Plan(candidates, store)
	if len(res.Accepted) > 0 {
		store.AddBatch(res.Accepted)
	}
	for i := range res.Warnings {
		w := res.Warnings[i]
		debug.Log("merge: edge %s accepted with missing endpoint %s", w.EdgeID, w.MissingEndpoint)
		e.bus.Publish(events.Event{
			Kind:    events.MergeWarning,
			IDs:     []string{w.EdgeID},
			Warning: &w,
			Message: "incomplete AOP structure: edge " + w.EdgeID + " references missing " + w.MissingEndpoint,
		})
	}
	debug.Log("merge: %d accepted, %d rejected, %d warnings",
		len(res.Accepted), len(res.Rejected), len(res.Warnings))
	return res
}
