package holder

import (
	"testing"

	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
)

type testObject struct{ ref netconfig.NetRef }

func (o testObject) Ref() netconfig.NetRef { return o.ref }
func (o testObject) Kind() int             { return 0 }

func TestSlot_AcquireRelease(t *testing.T) {
	var changes []netconfig.NetRef
	s := NewSlot(5, func(r netconfig.NetRef) { changes = append(changes, r) })

	assert.False(t, s.HasObject())
	assert.True(t, s.TryAcquire(testObject{ref: 9}))
	assert.True(t, s.HasObject())

	held, ok := s.Held()
	assert.True(t, ok)
	assert.Equal(t, netconfig.NetRef(9), held.Ref())

	s.Release()
	s.Release()
	assert.False(t, s.HasObject())
	assert.Equal(t, []netconfig.NetRef{9, netconfig.NoRef}, changes)
}

func TestSlot_HoldsOneObject(t *testing.T) {
	s := NewSlot(1, nil)
	assert.True(t, s.TryAcquire(testObject{ref: 2}))
	assert.False(t, s.TryAcquire(testObject{ref: 3}))
	assert.True(t, s.TryAcquire(testObject{ref: 2}), "re-acquiring the held object succeeds")
	assert.False(t, s.TryAcquire(nil))
}
