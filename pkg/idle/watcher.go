package idle

import "time"

// WatchOptions configures a watcher registered with Monitor.SetIdle.
type WatchOptions struct {
	// Tick makes the watcher fire every Timeout while idleness continues.
	// When false the watcher fires at most once per idle period.
	Tick bool
	// OnActive, if set, is called when activity arrives after the watcher
	// has moved off its creation time (see Watcher.NotifyActivity).
	OnActive func()
	// Name labels the watcher in logs.
	Name string
}

// Watcher is a single idle-timeout rule. Its methods are called by the
// owning Monitor; they are not safe for concurrent use.
type Watcher struct {
	name     string
	handler  func()
	onActive func()
	timeout  time.Duration
	tick     bool

	created  time.Time
	lastFire time.Time
	armed    bool
}

func newWatcher(handler func(), timeout time.Duration, opts WatchOptions, now time.Time) *Watcher {
	return &Watcher{
		name:     opts.Name,
		handler:  handler,
		onActive: opts.OnActive,
		timeout:  timeout,
		tick:     opts.Tick,
		created:  now,
		lastFire: now,
		armed:    true,
	}
}

// ReceiveIdleTick fires the handler when at least Timeout has passed since
// the watcher's last firing or reset. A one-shot watcher disarms after
// firing; a repeating watcher stays armed. It reports whether the handler
// ran. Panics from the handler propagate to the caller.
func (w *Watcher) ReceiveIdleTick(elapsed time.Duration, now time.Time) bool {
	if !w.armed {
		return false
	}
	if now.Sub(w.lastFire) < w.timeout {
		return false
	}

	w.handler()
	w.lastFire = now
	w.armed = w.tick
	return true
}

// NotifyActivity re-arms the watcher and restarts its timeout from now.
//
// OnActive runs when lastFire had moved away from the creation time before
// this call. That is true after any firing, and also after any earlier
// activity reset at a later instant than creation, so once a watcher has
// fired every subsequent activity calls OnActive.
func (w *Watcher) NotifyActivity(now time.Time) {
	hasFiredBefore := !w.lastFire.Equal(w.created)

	w.lastFire = now
	w.armed = true

	if w.onActive != nil && hasFiredBefore {
		w.onActive()
	}
}

// Name returns the watcher's label.
func (w *Watcher) Name() string { return w.name }

// Timeout returns the idle threshold.
func (w *Watcher) Timeout() time.Duration { return w.timeout }

// IsTick reports whether the watcher repeats while idle.
func (w *Watcher) IsTick() bool { return w.tick }

// Armed reports whether the watcher may fire on the next qualifying tick.
func (w *Watcher) Armed() bool { return w.armed }

// LastFire returns the time of creation, the most recent firing or the most
// recent activity reset, whichever is latest.
func (w *Watcher) LastFire() time.Time { return w.lastFire }
