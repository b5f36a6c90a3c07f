// Package introspect is a typed event bus used by the election engine to
// explain its decisions. Events are only built when someone listens for
// their type, so an empty Introspector costs a map lookup per event.
package introspect

import "reflect"

type Introspector struct {
	handlers map[reflect.Type][]func(any)
}

func New() *Introspector {
	return &Introspector{handlers: make(map[reflect.Type][]func(any))}
}

// Subscribe registers fn for every event of type E. Like Emit it ignores a
// nil Introspector, which never delivers events.
func Subscribe[E any](is *Introspector, fn func(E)) {
	if is == nil {
		return
	}
	t := reflect.TypeFor[E]()
	if is.handlers == nil {
		is.handlers = make(map[reflect.Type][]func(any))
	}
	is.handlers[t] = append(is.handlers[t], func(e any) { fn(e.(E)) })
}

// Emit delivers the event produced by build to the subscribers of E.
// A nil Introspector drops everything.
func Emit[E any](is *Introspector, build func() E) {
	if is == nil {
		return
	}
	hs := is.handlers[reflect.TypeFor[E]()]
	if len(hs) == 0 {
		return
	}
	ev := build()
	for _, h := range hs {
		h(ev)
	}
}
