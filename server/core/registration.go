package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StatusSource reports what the master server advertises about a session.
type StatusSource interface {
	PlayerCount() int
	Phase() netconfig.MatchPhase
	Joinable() bool
}

// RegistrationConfig describes how the server advertises itself.
type RegistrationConfig struct {
	MasterURL  string
	Name       string
	Address    string
	Version    string
	Region     string
	MaxPlayers int
	Interval   time.Duration
}

// Registration handles registering and heartbeating with the master server.
type Registration struct {
	cfg    RegistrationConfig
	status StatusSource
	client *http.Client
	logger zerolog.Logger

	mu       sync.Mutex
	serverID string

	stopCh chan struct{}
	done   chan struct{}
}

type regRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Phase      string `json:"phase"`
	Joinable   bool   `json:"joinable"`
}

type regResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID       string `json:"id"`
	Players  int    `json:"players"`
	Phase    string `json:"phase"`
	Joinable bool   `json:"joinable"`
}

func NewRegistration(cfg RegistrationConfig, status StatusSource) *Registration {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Registration{
		cfg:    cfg,
		status: status,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: log.With().Str("component", "registration").Logger(),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *Registration) Start() {
	if err := r.register(); err != nil {
		r.logger.Warn().Err(err).Msg("initial registration failed")
	}
	go r.heartbeatLoop()
}

func (r *Registration) Stop() {
	close(r.stopCh)
	<-r.done
}

// ServerID is the id assigned by the master, empty until registered.
func (r *Registration) ServerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serverID
}

func (r *Registration) register() error {
	body, err := json.Marshal(regRequest{
		Name:       r.cfg.Name,
		Address:    r.cfg.Address,
		Players:    r.status.PlayerCount(),
		MaxPlayers: r.cfg.MaxPlayers,
		Version:    r.cfg.Version,
		Region:     r.cfg.Region,
		Phase:      r.status.Phase().String(),
		Joinable:   r.status.Joinable(),
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := r.client.Post(r.cfg.MasterURL+"/servers/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result regResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	r.mu.Lock()
	r.serverID = result.ID
	r.mu.Unlock()
	r.logger.Info().Str("id", result.ID).Msg("registered with master")
	return nil
}

func (r *Registration) heartbeatLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.sendHeartbeat(); err != nil {
				r.logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (r *Registration) sendHeartbeat() error {
	id := r.ServerID()
	if id == "" {
		return r.register()
	}

	body, err := json.Marshal(heartbeatRequest{
		ID:       id,
		Players:  r.status.PlayerCount(),
		Phase:    r.status.Phase().String(),
		Joinable: r.status.Joinable(),
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := r.client.Post(r.cfg.MasterURL+"/servers/heartbeat", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		r.logger.Info().Msg("master lost our registration, re-registering")
		return r.register()
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
