//go:build js && wasm

package activity

import (
	"syscall/js"

	"github.com/Veraticus/useridle/pkg/idle"
)

// DOMSource listens for input events on the browser window in the
// capturing phase, so events stopped by page handlers still count.
type DOMSource struct {
	*Feed

	target    js.Value
	options   js.Value
	listeners map[idle.ActivityKind]js.Func
}

// NewDOMSource attaches listeners for kinds (all kinds if empty) to the
// global window.
func NewDOMSource(kinds []idle.ActivityKind, buffer int) *DOMSource {
	if len(kinds) == 0 {
		kinds = idle.AllKinds()
	}

	s := &DOMSource{
		Feed:   NewFeed(idle.SystemClock, buffer),
		target: js.Global().Get("window"),
		options: js.ValueOf(map[string]any{
			"capture": true,
			"passive": true,
		}),
		listeners: make(map[idle.ActivityKind]js.Func, len(kinds)),
	}

	for _, kind := range kinds {
		if _, ok := s.listeners[kind]; ok {
			continue
		}
		fn := js.FuncOf(func(js.Value, []js.Value) any {
			s.Emit(kind)
			return nil
		})
		s.listeners[kind] = fn
		s.target.Call("addEventListener", string(kind), fn, s.options)
	}

	return s
}

// Close removes the listeners and closes the event channel.
func (s *DOMSource) Close() {
	for kind, fn := range s.listeners {
		s.target.Call("removeEventListener", string(kind), fn, s.options)
		fn.Release()
	}
	s.listeners = nil
	s.Feed.Close()
}
