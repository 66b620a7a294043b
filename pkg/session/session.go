// Package session owns one dashboard session: the graph store, merge
// engine, scheduler, filter engine, visibility controller and selection
// synchronizer, wired together over one event bus. Nothing in here is a
// process-wide singleton; independent sessions never share state.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vhp4safety/aopgraph/internal/datasource"
	"github.com/vhp4safety/aopgraph/pkg/aop"
	"github.com/vhp4safety/aopgraph/pkg/config"
	"github.com/vhp4safety/aopgraph/pkg/debug"
	"github.com/vhp4safety/aopgraph/pkg/events"
	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/merge"
	"github.com/vhp4safety/aopgraph/pkg/model"
	"github.com/vhp4safety/aopgraph/pkg/schedule"
	"github.com/vhp4safety/aopgraph/pkg/selection"
	"github.com/vhp4safety/aopgraph/pkg/visibility"
	"github.com/vhp4safety/aopgraph/pkg/watcher"
)

// Session is the explicit context object holding all per-session state.
type Session struct {
	Bus    *events.Bus
	Store  *graphstore.Store
	Merge  *merge.Engine
	Sched  *schedule.Scheduler
	Filter *aop.Engine
	Vis    *visibility.Controller
	Sync   *selection.Synchronizer

	cfg    config.Config
	client *datasource.Client

	mu       sync.Mutex
	fontSize float64
	watch    *watcher.Watcher
}

// New builds a fully wired session. client may be nil for offline use
// (loading saved networks only); remote operations then fail cleanly.
func New(cfg config.Config, client *datasource.Client) *Session {
	bus := events.NewBus()
	store := graphstore.New(bus)

	s := &Session{
		Bus:      bus,
		Store:    store,
		Merge:    merge.NewEngine(bus),
		Filter:   aop.NewEngine(store, aop.WithPalette(cfg.UI.Palette)),
		Sync:     selection.NewSynchronizer(store),
		cfg:      cfg,
		client:   client,
		fontSize: cfg.UI.FontSizeMultiplier,
	}
	s.Sched = schedule.NewScheduler(schedule.WithOnError(func(channel string, err error) {
		bus.Publish(events.Event{
			Kind:    events.RefreshFailed,
			Message: fmt.Sprintf("%s refresh failed: %v", channel, err),
		})
	}))

	var fetch visibility.Fetcher
	if client != nil {
		fetch = client
	}
	s.Vis = visibility.NewController(store, s.Merge, fetch)

	// Every mutation coalesces into one table refresh and one relayout.
	onMutation := func(events.Event) {
		s.scheduleTableRefresh()
		s.scheduleLayout()
	}
	bus.Subscribe(events.ElementsAdded, onMutation)
	bus.Subscribe(events.ElementsRemoved, onMutation)

	return s
}

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

// FontSizeMultiplier returns the session font scale.
func (s *Session) FontSizeMultiplier() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fontSize
}

// SetFontSizeMultiplier adjusts the session font scale.
func (s *Session) SetFontSizeMultiplier(v float64) {
	if v <= 0 {
		return
	}
	s.mu.Lock()
	s.fontSize = v
	s.mu.Unlock()
}

func (s *Session) tableDelay() time.Duration {
	return time.Duration(s.cfg.Refresh.TableDebounceMs) * time.Millisecond
}

func (s *Session) layoutDelay() time.Duration {
	return time.Duration(s.cfg.Refresh.LayoutDelayMs) * time.Millisecond
}

func (s *Session) scheduleTableRefresh() {
	s.Sched.Schedule(schedule.ChannelAOPTable, func() error {
		return s.RefreshAOPTable(context.Background())
	}, s.tableDelay())
}

func (s *Session) scheduleLayout() {
	s.Sched.Schedule(schedule.ChannelLayout, func() error {
		s.Store.RunLayout()
		s.Filter.Reapply()
		return nil
	}, s.layoutDelay())
}

// MergeElements merges a batch of raw records into the graph. Duplicates
// are silently rejected (earlier insertion wins), dangling edges are
// accepted with a warning event. A stale fetch resolving after a delete
// may revive elements; that is accepted idempotent behavior.
func (s *Session) MergeElements(raws []model.RawElement) merge.Result {
	return s.Merge.Apply(raws, s.Store)
}

// AddNetworkData fetches the network fragments for a query and merges
// them in. Partial-result warnings from the server are republished on the
// bus for the UI's dismissible prompt.
func (s *Session) AddNetworkData(ctx context.Context, qt datasource.QueryType, values []string) (merge.Result, error) {
	if s.client == nil {
		return merge.Result{}, fmt.Errorf("no network service configured")
	}
	frag, err := s.client.FetchNetworkFragment(ctx, qt, values)
	if err != nil {
		return merge.Result{}, err
	}
	if frag.Warning != nil {
		s.Bus.Publish(events.Event{
			Kind:    events.MergeWarning,
			Message: frag.Warning.Message,
		})
	}
	return s.MergeElements(frag.Elements), nil
}

// ImportTable uploads a local CSV table, maps its columns onto graph
// elements server-side and merges the result.
func (s *Session) ImportTable(ctx context.Context, path string, mapping datasource.MappingConfig) (merge.Result, error) {
	if s.client == nil {
		return merge.Result{}, fmt.Errorf("no network service configured")
	}
	up, err := s.client.UploadCustomTable(ctx, path)
	if err != nil {
		return merge.Result{}, err
	}
	debug.Log("session: uploaded %s as table %s (%d rows)", path, up.TableID, up.RowCount)
	els, err := s.client.MapTableToElements(ctx, up.TableID, mapping)
	if err != nil {
		return merge.Result{}, err
	}
	return s.MergeElements(els), nil
}

// RawElements snapshots the full element set in insertion order, the form
// sent up with table projection requests and written to exports.
func (s *Session) RawElements() []model.RawElement {
	ids := s.Store.AllIDs()
	out := make([]model.RawElement, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.Store.Node(id); ok {
			out = append(out, model.Raw(n))
			continue
		}
		if e, ok := s.Store.Edge(id); ok {
			out = append(out, model.Raw(e))
		}
	}
	return out
}

// RefreshAOPTable fetches the relationship table projection for the
// current element set and swaps it into the synchronizer. On failure the
// previous rows are preserved (the UI shows an error banner instead of a
// cleared table) and the error is reported for the scheduler's onError.
func (s *Session) RefreshAOPTable(ctx context.Context) error {
	if s.client == nil {
		// Offline sessions project the table locally from edges.
		s.Sync.SetRows(s.localRows())
		s.Bus.Publish(events.Event{Kind: events.TableRefreshed})
		return nil
	}
	rows, err := s.client.FetchTableProjection(ctx, "aop", s.RawElements())
	if err != nil {
		return err
	}
	converted := make([]selection.Row, len(rows))
	for i, r := range rows {
		converted[i] = selection.Row{
			SourceID:     r.SourceID,
			SourceLabel:  r.SourceLabel,
			Relationship: r.Relationship,
			TargetID:     r.TargetID,
			TargetLabel:  r.TargetLabel,
			AOPs:         r.AOPs,
		}
	}
	s.Sync.SetRows(converted)
	s.Bus.Publish(events.Event{Kind: events.TableRefreshed})
	return nil
}

// localRows derives a relationship table from the graph itself, used when
// no service is configured (saved-network sessions).
func (s *Session) localRows() []selection.Row {
	var rows []selection.Row
	for _, e := range s.Store.Edges() {
		row := selection.Row{
			SourceID:     e.Source,
			SourceLabel:  e.Source,
			Relationship: string(e.Type),
			TargetID:     e.Target,
			TargetLabel:  e.Target,
		}
		if n, ok := s.Store.Node(e.Source); ok {
			row.SourceLabel = n.Label
			row.AOPs = aop.NormalizeAll(n.AOPRefs())
		} else {
			row.SourceID = selection.Sentinel
		}
		if n, ok := s.Store.Node(e.Target); ok {
			row.TargetLabel = n.Label
		} else {
			row.TargetID = selection.Sentinel
		}
		rows = append(rows, row)
	}
	return rows
}

// AOPUniverse returns every normalized AOP id observed in the current
// table data, falling back to node attributes when no table is loaded.
func (s *Session) AOPUniverse() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	rows := s.Sync.Rows()
	for _, r := range rows {
		add(aop.NormalizeAll(r.AOPs))
	}
	if len(out) == 0 {
		for _, n := range s.Store.Nodes() {
			add(aop.NormalizeAll(n.AOPRefs()))
		}
	}
	return out
}

// GroupByAllAops toggles grouping of every known AOP id.
func (s *Session) GroupByAllAops() aop.Status {
	return s.Filter.GroupAll(s.AOPUniverse())
}

// DeleteSelected hard-deletes the selected elements. Dependent tables
// refresh via the resulting ElementsRemoved event.
func (s *Session) DeleteSelected() []string {
	return s.Store.Remove(s.Store.Selected()...)
}

// Close releases the watcher and waits for in-flight refreshes.
func (s *Session) Close() {
	s.mu.Lock()
	w := s.watch
	s.watch = nil
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
	for _, ch := range []string{
		schedule.ChannelAOPTable, schedule.ChannelGeneTable,
		schedule.ChannelCompoundTable, schedule.ChannelLayout,
	} {
		s.Sched.Cancel(ch)
	}
	s.Sched.Wait()
	if s.client != nil {
		debug.Log("session: closed")
	}
}

// Watch starts auto-reload of a saved network file: outside edits are
// parsed and merged back in (idempotent, so repeated reloads are safe).
func (s *Session) Watch(path string) error {
	w, err := watcher.New(path,
		watcher.WithOnChange(func() {
			if err := s.reloadFile(path); err != nil {
				debug.Log("session: reload of %s failed: %v", path, err)
			}
		}),
		watcher.WithOnError(func(err error) {
			debug.Log("session: watch error: %v", err)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	old := s.watch
	s.watch = w
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	return nil
}

func (s *Session) reloadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := model.ParseDocument(data)
	if err != nil {
		return err
	}
	s.MergeElements(doc.Elements)
	return nil
}
