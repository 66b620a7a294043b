package schedule

import (
	"sync"
	"time"

	"github.com/vhp4safety/aopgraph/pkg/debug"
)

// Channel names used across the engine. Channels are independent: no
// ordering is guaranteed between them.
const (
	ChannelAOPTable      = "aop-table"
	ChannelGeneTable     = "gene-table"
	ChannelCompoundTable = "compound-table"
	ChannelLayout        = "layout"
)

// DefaultLayoutDelay keeps rapid bursts of additions coalescing into a
// single relayout instead of one per element.
const DefaultLayoutDelay = 100 * time.Millisecond

// Task is a unit of refresh work. A failed task is not retried; the next
// qualifying mutation schedules a fresh attempt.
type Task func() error

type channelState struct {
	timer    *time.Timer
	pending  Task // armed behind the timer; replaced by each Schedule call
	inFlight bool
	deferred Task // fired while in flight; runs when the flight lands
}

// Scheduler debounces work per channel and guarantees at most one task in
// flight per channel at any time.
type Scheduler struct {
	mu       sync.Mutex
	channels map[string]*channelState
	onError  func(channel string, err error)
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithOnError sets the callback invoked when a task returns an error.
func WithOnError(fn func(channel string, err error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// NewScheduler creates an idle scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		channels: make(map[string]*channelState),
		onError:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) state(channel string) *channelState {
	st, ok := s.channels[channel]
	if !ok {
		st = &channelState{}
		s.channels[channel] = st
	}
	return st
}

// Schedule arms fn to run after delay on the given channel. A later call
// on the same channel cancels the pending timer and restarts the delay
// (trailing debounce): only the last scheduled task fires. If the timer
// elapses while a task is already in flight the fire is deferred until the
// in-flight task completes.
func (s *Scheduler) Schedule(channel string, fn Task, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(channel)
	if st.timer != nil {
		st.timer.Stop()
	}
	st.pending = fn
	st.timer = time.AfterFunc(delay, func() { s.fire(channel) })
}

// ScheduleImmediate bypasses the debounce window but still respects the
// in-flight guard: if a task is running, exactly one immediate task is
// queued to run afterwards (a newer one replaces it).
func (s *Scheduler) ScheduleImmediate(channel string, fn Task) {
	s.mu.Lock()
	st := s.state(channel)
	if st.inFlight {
		st.deferred = fn
		s.mu.Unlock()
		return
	}
	s.launch(channel, st, fn)
	s.mu.Unlock()
}

// fire runs on the timer goroutine when a debounce window elapses.
func (s *Scheduler) fire(channel string) {
	s.mu.Lock()
	st := s.state(channel)
	fn := st.pending
	st.pending = nil
	st.timer = nil
	if fn == nil {
		s.mu.Unlock()
		return
	}
	if st.inFlight {
		st.deferred = fn
		s.mu.Unlock()
		return
	}
	s.launch(channel, st, fn)
	s.mu.Unlock()
}

// launch starts fn on its own goroutine. Caller holds s.mu.
func (s *Scheduler) launch(channel string, st *channelState, fn Task) {
	st.inFlight = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()
		err := fn()
		debug.LogTiming("schedule:"+channel, time.Since(start))
		if err != nil {
			debug.Log("schedule: channel %s task failed: %v", channel, err)
			s.onError(channel, err)
		}

		s.mu.Lock()
		st.inFlight = false
		next := st.deferred
		st.deferred = nil
		if next != nil {
			s.launch(channel, st, next)
		}
		s.mu.Unlock()
	}()
}

// Cancel drops any pending (not yet fired) task on the channel. An
// in-flight task is not interrupted.
func (s *Scheduler) Cancel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(channel)
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.pending = nil
	st.deferred = nil
}

// Pending reports whether a task is armed behind a timer on the channel.
func (s *Scheduler) Pending(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(channel)
	return st.pending != nil || st.deferred != nil
}

// InFlight reports whether a task is currently running on the channel.
func (s *Scheduler) InFlight(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(channel).inFlight
}

// Wait blocks until every launched task has returned. Pending timers are
// not waited for; call Cancel first when shutting down.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
