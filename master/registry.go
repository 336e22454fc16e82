package main

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ServerInfo describes a game server visible to clients.
type ServerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Phase      string `json:"phase"`
	Joinable   bool   `json:"joinable"`
}

// Status is what a heartbeat refreshes.
type Status struct {
	Players  int
	Phase    string
	Joinable bool
}

type serverRecord struct {
	ServerInfo
	LastSeen time.Time
}

// Registry is an in-memory store of active game servers with TTL-based expiry.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*serverRecord
	ttl     time.Duration
	clock   clockwork.Clock
	stopCh  chan struct{}
}

func NewRegistry(ttl time.Duration, clock clockwork.Clock) *Registry {
	return &Registry{
		servers: make(map[string]*serverRecord),
		ttl:     ttl,
		clock:   clock,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the expiry sweep every interval until Stop.
func (r *Registry) Start(interval time.Duration) {
	go r.cleanupLoop(interval)
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) Register(info ServerInfo) string {
	info.ID = uuid.NewString()

	r.mu.Lock()
	r.servers[info.ID] = &serverRecord{
		ServerInfo: info,
		LastSeen:   r.clock.Now(),
	}
	r.mu.Unlock()

	return info.ID
}

func (r *Registry) Heartbeat(id string, st Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return false
	}
	rec.LastSeen = r.clock.Now()
	rec.Players = st.Players
	rec.Phase = st.Phase
	rec.Joinable = st.Joinable
	return true
}

// List returns live servers ordered by name. With joinableOnly, servers in
// a running match or at capacity are left out.
func (r *Registry) List(joinableOnly bool) []ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ServerInfo, 0, len(r.servers))
	for _, rec := range r.servers {
		if joinableOnly && !rec.Joinable {
			continue
		}
		result = append(result, rec.ServerInfo)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Expire drops servers not seen within the TTL and returns how many it
// removed.
func (r *Registry) Expire() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for id, rec := range r.servers {
		if now.Sub(rec.LastSeen) >= r.ttl {
			log.Info().
				Str("name", rec.Name).
				Str("id", id).
				Dur("lastSeen", now.Sub(rec.LastSeen).Round(time.Second)).
				Msg("expired server")
			delete(r.servers, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.Chan():
			r.Expire()
		}
	}
}
