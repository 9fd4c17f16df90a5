// Package pagebridge holds the host-independent part of the page-level
// userIdle object: argument checks for setIdle, the handle registry and the
// guard that keeps a throwing page callback from stopping the monitor.
package pagebridge

import (
	"math"
	"sync"
	"time"

	"github.com/Veraticus/useridle/pkg/idle"
)

// ArgType mirrors the result of JavaScript typeof, with null split out.
type ArgType int

const (
	TypeUndefined ArgType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
	TypeFunction
)

// SetIdleArgs describes the arguments of setIdle(handler, timeCount, options).
type SetIdleArgs struct {
	Handler ArgType
	Timeout ArgType
	// TimeoutMillis is the numeric value when Timeout is TypeNumber.
	TimeoutMillis float64
	Options       ArgType
	// OptionsTick is the boolean value for a boolean options argument, or
	// the truthiness of options.tick for an object.
	OptionsTick bool
	// OptionsOnActive reports whether options.onActive is a function.
	OptionsOnActive bool
}

// Registration is what setIdle should register.
type Registration struct {
	Timeout  time.Duration
	Tick     bool
	OnActive bool
}

// ParseSetIdle validates setIdle's arguments. It reports false when the
// call should return null: the handler is not a function, the threshold is
// not a number, or the threshold is NaN.
//
// A negative threshold is treated as zero, so the watcher fires on the next
// poll. Thresholds too large for a time.Duration, including Infinity, are
// capped and never fire in practice.
func ParseSetIdle(a SetIdleArgs) (Registration, bool) {
	if a.Handler != TypeFunction || a.Timeout != TypeNumber || math.IsNaN(a.TimeoutMillis) {
		return Registration{}, false
	}

	var r Registration
	switch ms := a.TimeoutMillis; {
	case ms <= 0:
		r.Timeout = 0
	case ms >= float64(math.MaxInt64)/float64(time.Millisecond):
		r.Timeout = time.Duration(math.MaxInt64)
	default:
		r.Timeout = time.Duration(ms * float64(time.Millisecond))
	}

	switch a.Options {
	case TypeBoolean:
		r.Tick = a.OptionsTick
	case TypeObject:
		r.Tick = a.OptionsTick
		r.OnActive = a.OptionsOnActive
	}

	return r, true
}

// Registry maps numeric handles given to the page to watchers.
type Registry struct {
	mu      sync.Mutex
	nextID  int
	handles map[int]*idle.Watcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int]*idle.Watcher)}
}

// Add stores w and returns its handle id. Ids start at 1 and are never
// reused.
func (r *Registry) Add(w *idle.Watcher) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.handles[r.nextID] = w
	return r.nextID
}

// Remove forgets id and returns the watcher it referred to.
func (r *Registry) Remove(id int) (*idle.Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.handles[id]
	delete(r.handles, id)
	return w, ok
}

// Guard wraps a page callback. If fn panics, report is given the recovered
// value; when report returns true the panic is considered handled and the
// wrapper returns normally, otherwise the panic continues.
func Guard(fn func(), report func(recovered any) bool) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				if !report(r) {
					panic(r)
				}
			}
		}()
		fn()
	}
}
