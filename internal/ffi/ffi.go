// Package ffi keeps fuzz harnesses alive behind opaque integer handles so
// that foreign callers never hold Go pointers. cmd/libelectorium exports it
// as a C library.
package ffi

import (
	"errors"
	"sync"

	"github.com/VeltarosLabs/electorium/internal/fuzz"
)

// Handle identifies a live harness. Zero is never issued.
type Handle uintptr

var ErrUnknownHandle = errors.New("unknown or destroyed fuzz handle")

type Registry struct {
	mu   sync.Mutex
	next Handle
	live map[Handle]*fuzz.Harness
}

func NewRegistry() *Registry {
	return &Registry{live: make(map[Handle]*fuzz.Harness)}
}

// Default backs the exported C functions.
var Default = NewRegistry()

// New creates a harness over the default input format.
func (r *Registry) New(verbose bool) (Handle, error) {
	h, err := fuzz.New(fuzz.Config{Verbose: verbose})
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.live[r.next] = h
	return r.next, nil
}

func (r *Registry) get(id Handle) (*fuzz.Harness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.live[id]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return h, nil
}

// Run feeds buf to the harness. Like fuzz.Harness.Run it panics when the
// election invariant breaks, so that a fuzz engine records a crash.
func (r *Registry) Run(id Handle, buf []byte) (int16, error) {
	h, err := r.get(id)
	if err != nil {
		return fuzz.StatusNoWinner, err
	}
	return run(h, buf)
}

// run checks buf on h. A harness closed by a concurrent Destroy reports
// ErrUnknownHandle like a handle that was never issued.
func run(h *fuzz.Harness, buf []byte) (int16, error) {
	st, err := h.Check(buf)
	switch {
	case err == nil:
		return st, nil
	case errors.Is(err, fuzz.ErrClosed):
		return fuzz.StatusNoWinner, ErrUnknownHandle
	case errors.Is(err, fuzz.ErrWinnerNotBest):
		panic(err)
	default:
		return st, err
	}
}

// Destroy releases the handle; a second Destroy reports ErrUnknownHandle.
func (r *Registry) Destroy(id Handle) error {
	r.mu.Lock()
	h, ok := r.live[id]
	delete(r.live, id)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}
	return h.Close()
}

// Len is the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
