package core

import (
	"errors"
	"sync"

	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

type fakeConn struct {
	id string

	mu   sync.Mutex
	sent []any
	fail bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) Id() string { return c.id }

func (c *fakeConn) SendMessage(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection closed")
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

func (c *fakeConn) last() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

// lastOf returns the most recent message of type T.
func lastOf[T any](c *fakeConn) (T, bool) {
	msgs := c.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

func countOf[T any](c *fakeConn) int {
	n := 0
	for _, m := range c.messages() {
		if _, ok := m.(T); ok {
			n++
		}
	}
	return n
}

// fakeIdentity hands out sequential refs without touching necs globals.
type fakeIdentity struct {
	next     netconfig.NetRef
	entities map[netconfig.NetRef]donburi.Entity
	released []donburi.Entity
	fail     bool
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{entities: make(map[netconfig.NetRef]donburi.Entity)}
}

func (f *fakeIdentity) Assign(_ donburi.World, entity donburi.Entity, _ ...donburi.IComponentType) (netconfig.NetRef, error) {
	if f.fail {
		return netconfig.NoRef, errors.New("sync refused")
	}
	f.next++
	f.entities[f.next] = entity
	return f.next, nil
}

// lookup resolves ref to a live entity.
func (f *fakeIdentity) lookup(world donburi.World, ref netconfig.NetRef) (donburi.Entity, bool) {
	e, ok := f.entities[ref]
	if !ok || !world.Valid(e) {
		return donburi.Null, false
	}
	return e, true
}

func (f *fakeIdentity) Release(world donburi.World, entity donburi.Entity) {
	for ref, e := range f.entities {
		if e == entity {
			delete(f.entities, ref)
		}
	}
	f.released = append(f.released, entity)
	if world.Valid(entity) {
		world.Remove(entity)
	}
}

type fakeBroadcaster struct {
	msgs []any
}

func (b *fakeBroadcaster) Broadcast(msg any) { b.msgs = append(b.msgs, msg) }
