// Package observer provides typed, synchronous event fan-out for local
// collaborators (UI, audio, logging) of a session.
package observer

import "sync"

type subscription[T any] struct {
	id int
	fn func(T)
}

// Event delivers values to subscribers synchronously, in subscription order.
// The zero value is ready to use.
type Event[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

// Subscribe registers fn and returns a function that removes it.
func (e *Event[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription[T]{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every subscriber with v. Subscribers may subscribe or
// unsubscribe from within a callback; changes apply from the next Emit.
func (e *Event[T]) Emit(v T) {
	e.mu.Lock()
	subs := make([]subscription[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of active subscribers.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
