package service

import (
	"context"
	"sync"
)

// Hook is a callback fired with a value of type T.
type Hook[T any] func(ctx context.Context, value T)

type hookEntry[T any] struct {
	id int
	fn Hook[T]
}

// Hooks is an ordered callback registry owned by one service instance.
type Hooks[T any] struct {
	mu      sync.Mutex
	nextID  int
	entries []hookEntry[T]
}

// NewHooks creates an empty registry.
func NewHooks[T any]() *Hooks[T] {
	return &Hooks[T]{}
}

// Add registers fn and returns a func that removes it again.
func (h *Hooks[T]) Add(fn Hook[T]) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, hookEntry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, e := range h.entries {
				if e.id == id {
					h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// Fire calls every hook in registration order. Hooks added or removed
// while firing take effect on the next call.
func (h *Hooks[T]) Fire(ctx context.Context, value T) {
	h.mu.Lock()
	snapshot := make([]hookEntry[T], len(h.entries))
	copy(snapshot, h.entries)
	h.mu.Unlock()

	for _, e := range snapshot {
		e.fn(ctx, value)
	}
}

// Len returns the number of registered hooks.
func (h *Hooks[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
