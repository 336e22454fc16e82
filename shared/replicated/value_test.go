package replicated

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthority_SetPublishesThenNotifies(t *testing.T) {
	var order []string
	v := NewAuthority("phase", 0, func(x int) { order = append(order, "publish") })
	v.OnChanged(func(c Change[int]) {
		order = append(order, "observer")
		assert.Equal(t, 0, c.Previous)
		assert.Equal(t, 7, c.Current)
	})

	require.NoError(t, v.Set(7))

	assert.Equal(t, 7, v.Get())
	assert.Equal(t, []string{"publish", "observer"}, order)
}

func TestAuthority_SetSameValueIsNoop(t *testing.T) {
	published := 0
	notified := 0
	v := NewAuthority("timer", 3.0, func(float64) { published++ })
	v.OnChanged(func(Change[float64]) { notified++ })

	require.NoError(t, v.Set(3.0))

	assert.Zero(t, published)
	assert.Zero(t, notified)
}

func TestAuthority_RejectsApply(t *testing.T) {
	v := NewAuthority("phase", 1, nil)
	err := v.Apply(2)
	assert.ErrorIs(t, err, ErrAuthority)
	assert.Equal(t, 1, v.Get())
}

func TestReplica_RejectsSet(t *testing.T) {
	v := NewReplica("phase", 1)
	err := v.Set(2)
	assert.ErrorIs(t, err, ErrNotAuthority)
	assert.Equal(t, 1, v.Get())
}

func TestReplica_ApplyNotifiesInOrder(t *testing.T) {
	v := NewReplica("countdown", 3.0)
	var seen []Change[float64]
	v.OnChanged(func(c Change[float64]) { seen = append(seen, c) })

	require.NoError(t, v.Apply(2.5))
	require.NoError(t, v.Apply(2.0))
	require.NoError(t, v.Apply(2.0))

	assert.Equal(t, []Change[float64]{
		{Previous: 3.0, Current: 2.5},
		{Previous: 2.5, Current: 2.0},
	}, seen)
}
