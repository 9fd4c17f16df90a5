//go:build js && wasm

// Command useridle-wasm installs a userIdle object on the page's global scope
// with setIdle, clearIdle and a read-only idleTimeCount, backed by an
// idle.Monitor that listens to window input events.
package main

import (
	"syscall/js"

	"github.com/Veraticus/useridle/pkg/activity"
	"github.com/Veraticus/useridle/pkg/idle"
	"github.com/Veraticus/useridle/pkg/log"
	"github.com/Veraticus/useridle/pkg/pagebridge"
)

func main() {
	logger, err := log.Init(log.Options{})
	if err != nil {
		panic(err)
	}

	source := activity.NewDOMSource(nil, activity.DefaultBuffer)
	monitor := idle.New(idle.Options{
		Source: source,
		Logger: logger,
	})

	b := &bridge{
		monitor:  monitor,
		registry: pagebridge.NewRegistry(),
	}
	js.Global().Set("userIdle", b.object())

	monitor.Start()
	select {}
}

type bridge struct {
	monitor  *idle.Monitor
	registry *pagebridge.Registry
	funcs    []js.Func
}

func (b *bridge) object() js.Value {
	object := js.Global().Get("Object")
	obj := object.New()
	obj.Set("setIdle", b.export(b.setIdle))
	obj.Set("clearIdle", b.export(b.clearIdle))

	object.Call("defineProperty", obj, "idleTimeCount", map[string]any{
		"get": b.export(func([]js.Value) any {
			return b.monitor.IdleTimeCount().Milliseconds()
		}),
		"enumerable": true,
	})
	return obj
}

func (b *bridge) export(fn func(args []js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any { return fn(args) })
	b.funcs = append(b.funcs, f)
	return f
}

// setIdle(handler, timeCountMs, options) returns a handle or null. options is
// either a boolean selecting repeat mode or an object {tick, onActive}.
func (b *bridge) setIdle(args []js.Value) any {
	handler, timeout, options := arg(args, 0), arg(args, 1), arg(args, 2)

	in := pagebridge.SetIdleArgs{
		Handler: argType(handler),
		Timeout: argType(timeout),
		Options: argType(options),
	}
	if in.Timeout == pagebridge.TypeNumber {
		in.TimeoutMillis = timeout.Float()
	}
	var onActive js.Value
	switch in.Options {
	case pagebridge.TypeBoolean:
		in.OptionsTick = options.Bool()
	case pagebridge.TypeObject:
		in.OptionsTick = options.Get("tick").Truthy()
		onActive = options.Get("onActive")
		in.OptionsOnActive = onActive.Type() == js.TypeFunction
	}

	reg, ok := pagebridge.ParseSetIdle(in)
	if !ok {
		return nil
	}

	opts := idle.WatchOptions{Tick: reg.Tick}
	if reg.OnActive {
		opts.OnActive = pagebridge.Guard(func() { onActive.Invoke() }, reportError)
	}

	w := b.monitor.SetIdle(pagebridge.Guard(func() { handler.Invoke() }, reportError), reg.Timeout, opts)
	if w == nil {
		return nil
	}

	handle := js.Global().Get("Object").New()
	handle.Set("id", b.registry.Add(w))
	return handle
}

// clearIdle(handle) reports whether the handle was registered.
func (b *bridge) clearIdle(args []js.Value) any {
	handle := arg(args, 0)
	if handle.Type() != js.TypeObject {
		return false
	}
	id := handle.Get("id")
	if id.Type() != js.TypeNumber {
		return false
	}

	w, ok := b.registry.Remove(id.Int())
	if !ok {
		return false
	}
	return b.monitor.ClearIdle(w)
}

// reportError hands an exception thrown by a page callback to the host's
// global error handler, so the poll loop keeps running. Other panics are
// left to propagate.
func reportError(recovered any) bool {
	jsErr, ok := recovered.(js.Error)
	if !ok {
		return false
	}
	if report := js.Global().Get("reportError"); report.Type() == js.TypeFunction {
		report.Invoke(jsErr.Value)
	} else {
		js.Global().Get("console").Call("error", jsErr.Value)
	}
	return true
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func argType(v js.Value) pagebridge.ArgType {
	switch v.Type() {
	case js.TypeNull:
		return pagebridge.TypeNull
	case js.TypeBoolean:
		return pagebridge.TypeBoolean
	case js.TypeNumber:
		return pagebridge.TypeNumber
	case js.TypeString:
		return pagebridge.TypeString
	case js.TypeSymbol:
		return pagebridge.TypeSymbol
	case js.TypeObject:
		return pagebridge.TypeObject
	case js.TypeFunction:
		return pagebridge.TypeFunction
	default:
		return pagebridge.TypeUndefined
	}
}
