// Package session implements the match state machine. The server owns an
// authoritative Match that runs timers; clients hold a replica fed from
// snapshots. Both expose the same queries and local events.
package session

import (
	"fmt"
	"sync"

	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/observer"
	"github.com/automoto/kitchen-mp/shared/replicated"
)

// Config holds the match timings in seconds.
type Config struct {
	CountdownDuration float64
	PlayTimerMax      float64
}

func DefaultConfig() Config {
	return Config{
		CountdownDuration: netconfig.CountdownDuration,
		PlayTimerMax:      netconfig.PlayTimerMax,
	}
}

// PhaseChange is emitted on every phase transition.
type PhaseChange = replicated.Change[netconfig.MatchPhase]

// Match tracks the phase, both timers and the participant-local state
// (readiness latch and pause).
type Match struct {
	cfg Config

	phase     *replicated.Value[netconfig.MatchPhase]
	countdown *replicated.Value[float64]
	playTimer *replicated.Value[float64]

	// sendReady delivers a ready intent to the server. Nil on the server.
	sendReady func() error

	mu         sync.Mutex
	localReady bool
	paused     bool

	phaseChanged      observer.Event[PhaseChange]
	pausedEvt         observer.Event[struct{}]
	unpausedEvt       observer.Event[struct{}]
	localReadyChanged observer.Event[bool]
}

// NewAuthority creates the server-side match. publish receives the full
// replicated state after any of its values change.
func NewAuthority(cfg Config, publish func(netcomponents.NetGameStateData)) *Match {
	m := &Match{cfg: cfg}
	push := func() {
		if publish != nil {
			publish(m.State())
		}
	}
	m.phase = replicated.NewAuthority("phase", netconfig.PhaseWaitingToStart,
		func(netconfig.MatchPhase) { push() })
	m.countdown = replicated.NewAuthority("countdown", cfg.CountdownDuration,
		func(float64) { push() })
	m.playTimer = replicated.NewAuthority("play_timer", 0.0,
		func(float64) { push() })
	m.wire()
	return m
}

// NewReplica creates a client-side match. sendReady is used by Interact.
func NewReplica(cfg Config, sendReady func() error) *Match {
	m := &Match{cfg: cfg, sendReady: sendReady}
	m.phase = replicated.NewReplica("phase", netconfig.PhaseWaitingToStart)
	m.countdown = replicated.NewReplica("countdown", cfg.CountdownDuration)
	m.playTimer = replicated.NewReplica("play_timer", 0.0)
	m.wire()
	return m
}

func (m *Match) wire() {
	m.phase.OnChanged(func(c replicated.Change[netconfig.MatchPhase]) {
		m.phaseChanged.Emit(c)
	})
}

func (m *Match) IsAuthority() bool { return m.phase.IsAuthority() }

// State returns the replicated values as a wire component.
func (m *Match) State() netcomponents.NetGameStateData {
	m.mu.Lock()
	total := m.cfg.PlayTimerMax
	m.mu.Unlock()
	return netcomponents.NetGameStateData{
		Phase:          m.phase.Get(),
		CountdownTimer: m.countdown.Get(),
		PlayTimer:      m.playTimer.Get(),
		PlayTimerMax:   total,
	}
}

// ApplyState mirrors a state received from the server. Timers are applied
// before the phase so phase observers read consistent timer values.
func (m *Match) ApplyState(s netcomponents.NetGameStateData) error {
	if s.PlayTimerMax > 0 {
		m.mu.Lock()
		m.cfg.PlayTimerMax = s.PlayTimerMax
		m.mu.Unlock()
	}
	if err := m.countdown.Apply(s.CountdownTimer); err != nil {
		return err
	}
	if err := m.playTimer.Apply(s.PlayTimer); err != nil {
		return err
	}
	return m.phase.Apply(s.Phase)
}

// BeginCountdown moves WaitingToStart to CountdownToStart. It reports
// whether the transition happened, so repeated calls transition at most once.
func (m *Match) BeginCountdown() (bool, error) {
	if !m.IsAuthority() {
		return false, fmt.Errorf("begin countdown: %w", replicated.ErrNotAuthority)
	}
	if m.phase.Get() != netconfig.PhaseWaitingToStart {
		return false, nil
	}
	return true, m.phase.Set(netconfig.PhaseCountdownToStart)
}

// Tick advances the timers by dt seconds of elapsed time.
func (m *Match) Tick(dt float64) error {
	if !m.IsAuthority() {
		return fmt.Errorf("tick: %w", replicated.ErrNotAuthority)
	}

	switch m.phase.Get() {
	case netconfig.PhaseWaitingToStart:
		// Left by BeginCountdown once everyone is ready

	case netconfig.PhaseCountdownToStart:
		remaining := m.countdown.Get() - dt
		if err := m.countdown.Set(remaining); err != nil {
			return err
		}
		if remaining < 0 {
			if err := m.playTimer.Set(m.cfg.PlayTimerMax); err != nil {
				return err
			}
			return m.phase.Set(netconfig.PhaseGamePlaying)
		}

	case netconfig.PhaseGamePlaying:
		remaining := m.playTimer.Get() - dt
		if err := m.playTimer.Set(remaining); err != nil {
			return err
		}
		if remaining < 0 {
			return m.phase.Set(netconfig.PhaseGameOver)
		}

	case netconfig.PhaseGameOver:
	}
	return nil
}

// HandleAction routes an input intent.
func (m *Match) HandleAction(action netconfig.ActionID) error {
	switch action {
	case netconfig.ActionInteract:
		return m.Interact()
	case netconfig.ActionPause:
		m.TogglePause()
	}
	return nil
}

// Interact latches local readiness while waiting to start and sends a ready
// intent. The latch never resets within a match.
func (m *Match) Interact() error {
	if m.phase.Get() != netconfig.PhaseWaitingToStart {
		return nil
	}

	m.mu.Lock()
	flipped := !m.localReady
	m.localReady = true
	m.mu.Unlock()

	if flipped {
		m.localReadyChanged.Emit(true)
	}
	if m.sendReady != nil {
		if err := m.sendReady(); err != nil {
			return fmt.Errorf("send ready intent: %w", err)
		}
	}
	return nil
}

// TogglePause flips the local pause flag. Pause is never replicated.
func (m *Match) TogglePause() {
	m.mu.Lock()
	m.paused = !m.paused
	paused := m.paused
	m.mu.Unlock()

	if paused {
		m.pausedEvt.Emit(struct{}{})
	} else {
		m.unpausedEvt.Emit(struct{}{})
	}
}

func (m *Match) Phase() netconfig.MatchPhase { return m.phase.Get() }

func (m *Match) IsWaitingToStart() bool {
	return m.phase.Get() == netconfig.PhaseWaitingToStart
}

func (m *Match) IsPlaying() bool { return m.phase.Get() == netconfig.PhaseGamePlaying }

func (m *Match) IsCountdownActive() bool {
	return m.phase.Get() == netconfig.PhaseCountdownToStart
}

func (m *Match) IsGameOver() bool { return m.phase.Get() == netconfig.PhaseGameOver }

func (m *Match) IsLocalPlayerReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localReady
}

func (m *Match) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// TimeScale is 0 while paused and 1 otherwise.
func (m *Match) TimeScale() float64 {
	if m.IsPaused() {
		return 0
	}
	return 1
}

// CountdownRemaining returns seconds left before play starts.
func (m *Match) CountdownRemaining() float64 { return m.countdown.Get() }

// PlayTimeRemaining returns seconds left in the match.
func (m *Match) PlayTimeRemaining() float64 { return m.playTimer.Get() }

// PlayTimeElapsedFraction is 0 when play starts and 1 when time is up.
func (m *Match) PlayTimeElapsedFraction() float64 {
	m.mu.Lock()
	total := m.cfg.PlayTimerMax
	m.mu.Unlock()
	if total <= 0 {
		return 1
	}
	f := 1 - m.playTimer.Get()/total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func (m *Match) OnPhaseChanged(fn func(PhaseChange)) func() {
	return m.phaseChanged.Subscribe(fn)
}

func (m *Match) OnPaused(fn func()) func() {
	return m.pausedEvt.Subscribe(func(struct{}) { fn() })
}

func (m *Match) OnUnpaused(fn func()) func() {
	return m.unpausedEvt.Subscribe(func(struct{}) { fn() })
}

func (m *Match) OnLocalReadyChanged(fn func(ready bool)) func() {
	return m.localReadyChanged.Subscribe(fn)
}

// OnCountdownChanged observes the replicated countdown value.
func (m *Match) OnCountdownChanged(fn func(replicated.Change[float64])) func() {
	return m.countdown.OnChanged(fn)
}
