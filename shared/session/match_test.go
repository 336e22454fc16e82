package session

import (
	"errors"
	"testing"

	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/replicated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_FullLifecycle(t *testing.T) {
	var published []netcomponents.NetGameStateData
	m := NewAuthority(DefaultConfig(), func(s netcomponents.NetGameStateData) {
		published = append(published, s)
	})

	var phases []netconfig.MatchPhase
	m.OnPhaseChanged(func(c PhaseChange) { phases = append(phases, c.Current) })

	require.True(t, m.IsWaitingToStart())
	require.NoError(t, m.Tick(10))
	assert.True(t, m.IsWaitingToStart(), "waiting phase has no timer")

	ok, err := m.BeginCountdown()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, m.IsCountdownActive())

	prev := m.CountdownRemaining()
	for m.IsCountdownActive() {
		require.NoError(t, m.Tick(0.5))
		if m.IsCountdownActive() {
			assert.Less(t, m.CountdownRemaining(), prev)
			prev = m.CountdownRemaining()
		}
	}
	require.True(t, m.IsPlaying())
	assert.Equal(t, netconfig.PlayTimerMax, m.PlayTimeRemaining())
	assert.Zero(t, m.PlayTimeElapsedFraction())

	for i := 0; i < 181; i++ {
		require.NoError(t, m.Tick(0.5))
	}
	assert.True(t, m.IsGameOver())

	require.NoError(t, m.Tick(100))
	assert.True(t, m.IsGameOver(), "game over is terminal")

	assert.Equal(t, []netconfig.MatchPhase{
		netconfig.PhaseCountdownToStart,
		netconfig.PhaseGamePlaying,
		netconfig.PhaseGameOver,
	}, phases)
	require.NotEmpty(t, published)
	assert.Equal(t, netconfig.PhaseGameOver, published[len(published)-1].Phase)
}

func TestMatch_CountdownCrossingSetsPlayTimerExactly(t *testing.T) {
	m := NewAuthority(Config{CountdownDuration: 1, PlayTimerMax: 30}, nil)
	_, err := m.BeginCountdown()
	require.NoError(t, err)

	require.NoError(t, m.Tick(1))
	assert.True(t, m.IsCountdownActive(), "reaching exactly zero does not start play")

	require.NoError(t, m.Tick(0.01))
	assert.True(t, m.IsPlaying())
	assert.Equal(t, 30.0, m.PlayTimeRemaining())
}

func TestMatch_BeginCountdownOnlyOnce(t *testing.T) {
	m := NewAuthority(DefaultConfig(), nil)
	transitions := 0
	m.OnPhaseChanged(func(PhaseChange) { transitions++ })

	first, err := m.BeginCountdown()
	require.NoError(t, err)
	second, err := m.BeginCountdown()
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, transitions)
}

func TestMatch_ElapsedFractionMonotonic(t *testing.T) {
	m := NewAuthority(Config{CountdownDuration: 0, PlayTimerMax: 10}, nil)
	_, err := m.BeginCountdown()
	require.NoError(t, err)
	require.NoError(t, m.Tick(0.001))
	require.True(t, m.IsPlaying())

	last := m.PlayTimeElapsedFraction()
	for m.IsPlaying() {
		require.NoError(t, m.Tick(0.25))
		f := m.PlayTimeElapsedFraction()
		assert.GreaterOrEqual(t, f, last)
		assert.LessOrEqual(t, f, 1.0)
		last = f
	}
	assert.Equal(t, 1.0, last)
}

func TestMatch_ReplicaCannotDriveTimers(t *testing.T) {
	m := NewReplica(DefaultConfig(), nil)
	assert.ErrorIs(t, m.Tick(1), replicated.ErrNotAuthority)
	_, err := m.BeginCountdown()
	assert.ErrorIs(t, err, replicated.ErrNotAuthority)
}

func TestMatch_ReplicaApplyState(t *testing.T) {
	m := NewReplica(DefaultConfig(), nil)
	var seenTimer float64
	m.OnPhaseChanged(func(c PhaseChange) {
		if c.Current == netconfig.PhaseGamePlaying {
			seenTimer = m.PlayTimeRemaining()
		}
	})

	require.NoError(t, m.ApplyState(netcomponents.NetGameStateData{
		Phase:          netconfig.PhaseGamePlaying,
		CountdownTimer: -0.02,
		PlayTimer:      60,
		PlayTimerMax:   60,
	}))

	assert.True(t, m.IsPlaying())
	assert.Equal(t, 60.0, seenTimer, "timers land before the phase observer runs")
	assert.Zero(t, m.PlayTimeElapsedFraction())
}

func TestMatch_ReplicaCountdownObserved(t *testing.T) {
	m := NewReplica(DefaultConfig(), nil)
	var seen []replicated.Change[float64]
	m.OnCountdownChanged(func(c replicated.Change[float64]) { seen = append(seen, c) })

	start := m.CountdownRemaining()
	state := netcomponents.NetGameStateData{Phase: netconfig.PhaseCountdownToStart, CountdownTimer: 2.5}
	require.NoError(t, m.ApplyState(state))
	require.NoError(t, m.ApplyState(state))

	require.Len(t, seen, 1, "unchanged values do not notify")
	assert.Equal(t, replicated.Change[float64]{Previous: start, Current: 2.5}, seen[0])
}

func TestMatch_InteractLatchesReady(t *testing.T) {
	sent := 0
	m := NewReplica(DefaultConfig(), func() error { sent++; return nil })
	readyEvents := 0
	m.OnLocalReadyChanged(func(bool) { readyEvents++ })

	require.NoError(t, m.HandleAction(netconfig.ActionInteract))
	require.NoError(t, m.HandleAction(netconfig.ActionInteract))

	assert.True(t, m.IsLocalPlayerReady())
	assert.Equal(t, 1, readyEvents)
	assert.Equal(t, 2, sent, "the ready intent is resent; the server write is idempotent")
}

func TestMatch_InteractOutsideLobbyDoesNothing(t *testing.T) {
	sent := 0
	m := NewReplica(DefaultConfig(), func() error { sent++; return nil })
	require.NoError(t, m.ApplyState(netcomponents.NetGameStateData{Phase: netconfig.PhaseGamePlaying}))

	require.NoError(t, m.Interact())

	assert.False(t, m.IsLocalPlayerReady())
	assert.Zero(t, sent)
}

func TestMatch_InteractSendError(t *testing.T) {
	boom := errors.New("not connected")
	m := NewReplica(DefaultConfig(), func() error { return boom })

	err := m.Interact()
	assert.ErrorIs(t, err, boom)
	assert.True(t, m.IsLocalPlayerReady())
}

func TestMatch_TogglePauseTwice(t *testing.T) {
	m := NewAuthority(DefaultConfig(), nil)
	var events []string
	m.OnPaused(func() { events = append(events, "paused") })
	m.OnUnpaused(func() { events = append(events, "unpaused") })

	before := m.TimeScale()
	require.NoError(t, m.HandleAction(netconfig.ActionPause))
	assert.Zero(t, m.TimeScale())
	assert.True(t, m.IsPaused())
	m.TogglePause()

	assert.Equal(t, before, m.TimeScale())
	assert.Equal(t, []string{"paused", "unpaused"}, events)
}
