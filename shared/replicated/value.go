// Package replicated holds values owned by the authoritative role and mirrored
// on every other participant.
package replicated

import (
	"errors"
	"fmt"
	"sync"

	"github.com/automoto/kitchen-mp/shared/observer"
)

var (
	// ErrNotAuthority is returned when a replica tries to Set a value.
	ErrNotAuthority = errors.New("replicated: value is not owned by this role")
	// ErrAuthority is returned when the owner receives a value from the network.
	ErrAuthority = errors.New("replicated: authority does not accept remote values")
)

// Change is passed to observers whenever a value changes.
type Change[T any] struct {
	Previous T
	Current  T
}

// Value wraps one replicated field. On the authority, Set stores the value
// and hands it to the propagation hook; on replicas, Apply stores values
// received from the network. Both notify local observers synchronously.
type Value[T comparable] struct {
	mu        sync.RWMutex
	name      string
	value     T
	authority bool
	publish   func(T)

	changed observer.Event[Change[T]]
}

// NewAuthority creates the owning side of a value. publish is called with
// every new value before observers run; it may be nil.
func NewAuthority[T comparable](name string, initial T, publish func(T)) *Value[T] {
	return &Value[T]{
		name:      name,
		value:     initial,
		authority: true,
		publish:   publish,
	}
}

// NewReplica creates a read-only mirror of a value.
func NewReplica[T comparable](name string, initial T) *Value[T] {
	return &Value[T]{name: name, value: initial}
}

func (v *Value[T]) Name() string { return v.name }

func (v *Value[T]) IsAuthority() bool { return v.authority }

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set assigns a new authoritative value. Assigning the current value is a no-op.
func (v *Value[T]) Set(x T) error {
	if !v.authority {
		return fmt.Errorf("set %s: %w", v.name, ErrNotAuthority)
	}
	prev, changed := v.store(x)
	if !changed {
		return nil
	}
	if v.publish != nil {
		v.publish(x)
	}
	v.changed.Emit(Change[T]{Previous: prev, Current: x})
	return nil
}

// Apply assigns a value received from the authority.
func (v *Value[T]) Apply(x T) error {
	if v.authority {
		return fmt.Errorf("apply %s: %w", v.name, ErrAuthority)
	}
	prev, changed := v.store(x)
	if changed {
		v.changed.Emit(Change[T]{Previous: prev, Current: x})
	}
	return nil
}

// OnChanged registers fn for change notifications and returns its remover.
func (v *Value[T]) OnChanged(fn func(Change[T])) func() {
	return v.changed.Subscribe(fn)
}

func (v *Value[T]) store(x T) (prev T, changed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev = v.value
	if prev == x {
		return prev, false
	}
	v.value = x
	return prev, true
}
