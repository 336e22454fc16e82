package network

import (
	"testing"

	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(ref netconfig.NetRef) EntityState {
	return EntityState{Ref: ref, Components: []any{
		netcomponents.NetHolderData{Type: netcomponents.HolderCounter},
	}}
}

func player(ref netconfig.NetRef, id netconfig.ParticipantID, name string) EntityState {
	return EntityState{Ref: ref, Components: []any{
		netcomponents.NetHolderData{Type: netcomponents.HolderPlayer},
		netcomponents.NetPlayerData{Participant: id, Name: name},
	}}
}

func object(ref netconfig.NetRef, kind int, parent netconfig.NetRef) EntityState {
	return EntityState{Ref: ref, Components: []any{
		netcomponents.NetSharedObjectData{Kind: kind, Parent: parent},
	}}
}

func TestView_ObjectArrivingBeforeHolderAttaches(t *testing.T) {
	v := NewView(session.DefaultConfig(), nil, nil)
	var spawned []netconfig.NetRef
	v.OnObjectSpawned(func(o *ObjectView) { spawned = append(spawned, o.Ref()) })

	v.ApplySnapshot([]EntityState{object(9, 0, 2), counter(2), counter(3)})

	obj, ok := v.Object(9)
	require.True(t, ok)
	assert.Equal(t, netconfig.NetRef(2), obj.Parent())
	p, ok := v.Parent(2)
	require.True(t, ok)
	held, ok := p.Held()
	require.True(t, ok)
	assert.Equal(t, netconfig.NetRef(9), held.Ref())
	assert.Equal(t, []netconfig.NetRef{9}, spawned)
	assert.Equal(t, []netconfig.NetRef{2, 3}, v.Counters())
}

func TestView_Reparent(t *testing.T) {
	v := NewView(session.DefaultConfig(), nil, nil)
	v.ApplySnapshot([]EntityState{counter(2), player(5, 1, "alice"), object(9, 3, 2)})

	var moves []Reparented
	v.OnObjectReparented(func(r Reparented) { moves = append(moves, r) })

	v.ApplySnapshot([]EntityState{counter(2), player(5, 1, "alice"), object(9, 3, 5)})

	assert.Equal(t, []Reparented{{Object: 9, Previous: 2, Current: 5}}, moves)
	counterView, _ := v.Parent(2)
	assert.False(t, counterView.HasObject())
	playerView, _ := v.Parent(5)
	assert.True(t, playerView.HasObject())

	players := v.Players()
	require.Len(t, players, 1)
	assert.Equal(t, "alice", players[0].Player.Name)
}

func TestView_ClearParentBeforeRemoval(t *testing.T) {
	v := NewView(session.DefaultConfig(), nil, nil)
	v.ApplySnapshot([]EntityState{counter(2), object(9, 0, 2)})

	var order []string
	v.OnObjectCleared(func(evt messages.ClearParentEvent) {
		p, _ := v.Parent(evt.Parent)
		assert.False(t, p.HasObject())
		order = append(order, "cleared")
	})
	v.OnObjectRemoved(func(netconfig.NetRef) { order = append(order, "removed") })

	v.ClearParent(messages.ClearParentEvent{Object: 9, Parent: 2})
	v.ApplySnapshot([]EntityState{counter(2)})

	assert.Equal(t, []string{"cleared", "removed"}, order)
	_, ok := v.Object(9)
	assert.False(t, ok)
}

func TestView_ClearParentForUnknownObject(t *testing.T) {
	v := NewView(session.DefaultConfig(), nil, nil)
	fired := 0
	v.OnObjectCleared(func(messages.ClearParentEvent) { fired++ })

	v.ClearParent(messages.ClearParentEvent{Object: 99, Parent: 1})
	assert.Equal(t, 1, fired)
}

func TestView_GameStateDrivesMatchReplica(t *testing.T) {
	v := NewView(session.DefaultConfig(), nil, nil)
	var phases []netconfig.MatchPhase
	v.Match().OnPhaseChanged(func(c session.PhaseChange) { phases = append(phases, c.Current) })

	v.ApplySnapshot([]EntityState{{Ref: 1, Components: []any{netcomponents.NetGameStateData{
		Phase:          netconfig.PhaseCountdownToStart,
		CountdownTimer: 2.5,
		PlayTimerMax:   90,
	}}}})
	v.ApplySnapshot([]EntityState{{Ref: 1, Components: []any{netcomponents.NetGameStateData{
		Phase:          netconfig.PhaseCountdownToStart,
		CountdownTimer: 2.0,
		PlayTimerMax:   90,
	}}}})

	assert.Equal(t, []netconfig.MatchPhase{netconfig.PhaseCountdownToStart}, phases)
	assert.Equal(t, 2.0, v.Match().CountdownRemaining())
}
