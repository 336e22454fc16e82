// Package holder defines the parent capability: anything that can hold at
// most one shared object at a time.
package holder

import (
	"sync"

	"github.com/automoto/kitchen-mp/shared/netconfig"
)

// Object is the minimal view of a shared object a holder needs.
type Object interface {
	Ref() netconfig.NetRef
	Kind() int
}

// Parent can accept and release a single shared object. Ref is stable and
// resolvable by every participant.
type Parent interface {
	Ref() netconfig.NetRef
	TryAcquire(obj Object) bool
	Release()
	HasObject() bool
	Held() (Object, bool)
}

// Slot is the standard Parent implementation. onChange, if set, is called
// with the held object's ref (or NoRef) after every acquire or release.
type Slot struct {
	mu       sync.Mutex
	ref      netconfig.NetRef
	held     Object
	onChange func(netconfig.NetRef)
}

// NewSlot creates an empty slot identified by ref.
func NewSlot(ref netconfig.NetRef, onChange func(netconfig.NetRef)) *Slot {
	return &Slot{ref: ref, onChange: onChange}
}

func (s *Slot) Ref() netconfig.NetRef { return s.ref }

// TryAcquire places obj in the slot. It fails if the slot is occupied by a
// different object; acquiring the already-held object succeeds.
func (s *Slot) TryAcquire(obj Object) bool {
	if obj == nil {
		return false
	}
	s.mu.Lock()
	if s.held != nil {
		same := s.held.Ref() == obj.Ref()
		s.mu.Unlock()
		return same
	}
	s.held = obj
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(obj.Ref())
	}
	return true
}

// Release empties the slot. Releasing an empty slot does nothing.
func (s *Slot) Release() {
	s.mu.Lock()
	if s.held == nil {
		s.mu.Unlock()
		return
	}
	s.held = nil
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(netconfig.NoRef)
	}
}

func (s *Slot) HasObject() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held != nil
}

func (s *Slot) Held() (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held, s.held != nil
}
