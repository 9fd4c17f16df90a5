// Package idle detects user inactivity and notifies registered watchers when
// their idle thresholds elapse.
package idle

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/useridle/pkg/interfaces"
)

// DefaultPollInterval is how often the monitor recomputes idle time when
// Options.PollInterval is unset.
const DefaultPollInterval = 500 * time.Millisecond

// ErrSourceClosed is returned by Run when the activity source closes its
// channel.
var ErrSourceClosed = errors.New("activity source closed")

// Ensure Monitor implements IdleDetector
var _ interfaces.IdleDetector = (*Monitor)(nil)

// Options configures a Monitor.
type Options struct {
	PollInterval time.Duration
	Clock        Clock
	Source       ActivitySource
	// Kinds limits which activity kinds reset the idle timer.
	// Empty means all kinds.
	Kinds  []ActivityKind
	Logger *slog.Logger
}

// Monitor aggregates user activity, tracks how long the user has been idle
// and dispatches poll ticks and activity resets to its watchers in
// registration order.
//
// Dispatch happens on whichever goroutine calls Poll or HandleActivity; Run
// does both from a single loop. A host should drive a monitor either through
// Run/Start or by calling Poll and HandleActivity itself, not both.
type Monitor struct {
	pollInterval time.Duration
	clock        Clock
	source       ActivitySource
	kinds        map[ActivityKind]bool
	logger       *slog.Logger

	mu          sync.Mutex
	idleStart   time.Time
	idleElapsed time.Duration
	watchers    []*Watcher

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor. The idle period starts at construction.
func New(opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = AllKinds()
	}

	kinds := make(map[ActivityKind]bool, len(opts.Kinds))
	for _, k := range opts.Kinds {
		kinds[k] = true
	}

	return &Monitor{
		pollInterval: opts.PollInterval,
		clock:        opts.Clock,
		source:       opts.Source,
		kinds:        kinds,
		logger:       opts.Logger,
		idleStart:    opts.Clock.Now(),
	}
}

// PollInterval returns the configured poll period.
func (m *Monitor) PollInterval() time.Duration {
	return m.pollInterval
}

// Run polls every PollInterval and applies activity from the source until
// ctx is cancelled or the source closes.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.pollInterval)
	defer ticker.Stop()

	// A nil source leaves events nil, which blocks forever in select.
	var events <-chan Activity
	if m.source != nil {
		events = m.source.Activity()
	}

	m.logger.Debug("idle monitor started", "poll_interval", m.pollInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			m.Poll()
		case a, ok := <-events:
			if !ok {
				return ErrSourceClosed
			}
			m.HandleActivity(a)
		}
	}
}

// Start runs the monitor in the background. Calling Start on a running
// monitor does nothing.
func (m *Monitor) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("idle monitor stopped", "error", err)
		}
	}()
}

// Stop halts a monitor started with Start and waits for its loop to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Poll recomputes the idle time and offers it to every watcher.
func (m *Monitor) Poll() {
	now := m.clock.Now()

	m.mu.Lock()
	m.idleElapsed = now.Sub(m.idleStart)
	elapsed := m.idleElapsed
	snapshot := slices.Clone(m.watchers)
	m.mu.Unlock()

	for _, w := range snapshot {
		if w.ReceiveIdleTick(elapsed, now) {
			m.logger.Debug("idle watcher fired",
				"watcher", w.Name(),
				"timeout", w.Timeout(),
				"idle", elapsed)
		}
	}
}

// HandleActivity resets the idle timer and re-arms every watcher.
// Activity of a kind the monitor was not configured for is ignored.
func (m *Monitor) HandleActivity(a Activity) {
	if !m.kinds[a.Kind] {
		return
	}

	now := m.clock.Now()

	m.mu.Lock()
	m.idleStart = now
	m.idleElapsed = 0
	snapshot := slices.Clone(m.watchers)
	m.mu.Unlock()

	for _, w := range snapshot {
		w.NotifyActivity(now)
	}
}

// IdleTimeCount returns the idle time as of the last poll, or zero after an
// activity reset that has not yet been followed by a poll.
func (m *Monitor) IdleTimeCount() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idleElapsed
}

// SetIdle registers a watcher that calls handler once the user has been idle
// for timeout. It returns nil and registers nothing if handler is nil or
// timeout is negative.
func (m *Monitor) SetIdle(handler func(), timeout time.Duration, opts WatchOptions) *Watcher {
	if handler == nil || timeout < 0 {
		m.logger.Debug("rejected idle watcher",
			"watcher", opts.Name,
			"nil_handler", handler == nil,
			"timeout", timeout)
		return nil
	}

	w := newWatcher(handler, timeout, opts, m.clock.Now())

	m.mu.Lock()
	m.watchers = append(m.watchers, w)
	m.mu.Unlock()

	m.logger.Debug("registered idle watcher",
		"watcher", w.Name(),
		"timeout", timeout,
		"tick", opts.Tick)
	return w
}

// ClearIdle unregisters w. It reports whether w was registered.
func (m *Monitor) ClearIdle(w *Watcher) bool {
	if w == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.watchers, w)
	if i < 0 {
		return false
	}
	m.watchers = slices.Delete(m.watchers, i, i+1)
	return true
}

// Len returns the number of registered watchers.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// IsUserIdle reports whether at least threshold has passed since the last
// activity. Unlike IdleTimeCount it reads the clock instead of the last poll.
func (m *Monitor) IsUserIdle(threshold time.Duration) (bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Sub(m.idleStart) >= threshold, nil
}

// LastActivity returns the time of the last accepted activity, or the
// monitor's construction time if there has been none.
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idleStart
}
