package core

import (
	"sync"

	"github.com/automoto/kitchen-mp/shared/netconfig"
)

// ReadinessTracker records which participants have sent a ready intent.
// Entries are never dropped during a match; a recycled id is reset when it
// is admitted again.
type ReadinessTracker struct {
	mu        sync.RWMutex
	ready     map[netconfig.ParticipantID]bool
	connected func() []netconfig.ParticipantID
}

// NewReadinessTracker evaluates readiness against the ids returned by connected.
func NewReadinessTracker(connected func() []netconfig.ParticipantID) *ReadinessTracker {
	return &ReadinessTracker{
		ready:     make(map[netconfig.ParticipantID]bool),
		connected: connected,
	}
}

// MarkReady sets id ready and reports whether every connected participant
// is now ready.
func (r *ReadinessTracker) MarkReady(id netconfig.ParticipantID) bool {
	r.mu.Lock()
	r.ready[id] = true
	r.mu.Unlock()
	return r.AllReady()
}

// Reset marks id as not ready.
func (r *ReadinessTracker) Reset(id netconfig.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready[id] = false
}

func (r *ReadinessTracker) IsReady(id netconfig.ParticipantID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready[id]
}

// AllReady is false for an empty connected set: a lobby with nobody in it
// never starts a countdown.
func (r *ReadinessTracker) AllReady() bool {
	ids := r.connected()
	if len(ids) == 0 {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if !r.ready[id] {
			return false
		}
	}
	return true
}

// ReadyCount returns how many connected participants are ready.
func (r *ReadinessTracker) ReadyCount() int {
	ids := r.connected()
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, id := range ids {
		if r.ready[id] {
			n++
		}
	}
	return n
}
