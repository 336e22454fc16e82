package core

import (
	"errors"
	"fmt"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/holder"
	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/observer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

var (
	ErrUnknownKind    = catalog.ErrUnknownKind
	ErrParentNotFound = errors.New("parent not found")
	ErrParentOccupied = errors.New("parent already holds an object")
	ErrObjectNotFound = errors.New("object not found")
)

// Broadcaster sends a message to every connected participant.
type Broadcaster interface {
	Broadcast(msg any)
}

// SharedObject is the server's authoritative record of a spawned object.
type SharedObject struct {
	ref    netconfig.NetRef
	kindID int
	kind   catalog.Kind
	entity donburi.Entity
	parent holder.Parent
}

func (o *SharedObject) Ref() netconfig.NetRef { return o.ref }
func (o *SharedObject) Kind() int             { return o.kindID }
func (o *SharedObject) KindInfo() catalog.Kind { return o.kind }

// Parent returns the current holder, or nil.
func (o *SharedObject) Parent() holder.Parent { return o.parent }

// Holder is a server-side parent backed by a replicated entity. Its held
// object ref is mirrored into the NetHolder component.
type Holder struct {
	*holder.Slot
	entity donburi.Entity
}

// NewHolder creates and replicates a holder entity. extra components are
// added to the entity and replicated alongside NetHolder.
func NewHolder(world donburi.World, ids NetworkIdentity, typ netcomponents.HolderType, extra ...donburi.IComponentType) (*Holder, error) {
	comps := append([]donburi.IComponentType{netcomponents.NetHolder}, extra...)
	entity := world.Create(comps...)
	netcomponents.NetHolder.SetValue(world.Entry(entity), netcomponents.NetHolderData{Type: typ})

	ref, err := ids.Assign(world, entity, comps...)
	if err != nil {
		world.Remove(entity)
		return nil, fmt.Errorf("assign holder identity: %w", err)
	}

	h := &Holder{entity: entity}
	h.Slot = holder.NewSlot(ref, func(held netconfig.NetRef) {
		if !world.Valid(entity) {
			return
		}
		data := netcomponents.NetHolder.Get(world.Entry(entity))
		data.Held = held
	})
	return h, nil
}

func (h *Holder) Entity() donburi.Entity { return h.entity }

// ObjectCoordinator is the only code that creates, moves and destroys
// shared objects. It runs on the session's command thread.
type ObjectCoordinator struct {
	world   donburi.World
	catalog *catalog.Catalog
	ids     NetworkIdentity
	out     Broadcaster
	logger  zerolog.Logger

	parents map[netconfig.NetRef]holder.Parent
	objects map[netconfig.NetRef]*SharedObject

	cleared observer.Event[messages.ClearParentEvent]
}

func NewObjectCoordinator(world donburi.World, cat *catalog.Catalog, ids NetworkIdentity, out Broadcaster) *ObjectCoordinator {
	return &ObjectCoordinator{
		world:   world,
		catalog: cat,
		ids:     ids,
		out:     out,
		logger:  log.With().Str("component", "objects").Logger(),
		parents: make(map[netconfig.NetRef]holder.Parent),
		objects: make(map[netconfig.NetRef]*SharedObject),
	}
}

// RegisterParent makes p resolvable by spawn and reparent requests.
func (c *ObjectCoordinator) RegisterParent(p holder.Parent) {
	c.parents[p.Ref()] = p
}

// UnregisterParent destroys whatever p holds and forgets p.
func (c *ObjectCoordinator) UnregisterParent(ref netconfig.NetRef) {
	p, ok := c.parents[ref]
	if !ok {
		return
	}
	if held, ok := p.Held(); ok {
		if err := c.Destroy(held.Ref()); err != nil {
			c.logger.Warn().Err(err).Uint("parent", uint(ref)).Msg("failed to destroy held object")
		}
	}
	delete(c.parents, ref)
}

// Spawn creates an object of catalog kind kindID on the parent parentRef.
func (c *ObjectCoordinator) Spawn(kindID int, parentRef netconfig.NetRef) (*SharedObject, error) {
	kind, err := c.catalog.Kind(kindID)
	if err != nil {
		return nil, err
	}
	parent, ok := c.parents[parentRef]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrParentNotFound, parentRef)
	}
	if parent.HasObject() {
		return nil, fmt.Errorf("%w: %d", ErrParentOccupied, parentRef)
	}

	entity := c.world.Create(netcomponents.NetSharedObject)
	netcomponents.NetSharedObject.SetValue(c.world.Entry(entity), netcomponents.NetSharedObjectData{
		Kind:   kindID,
		Parent: netconfig.NoRef,
	})

	ref, err := c.ids.Assign(c.world, entity, netcomponents.NetSharedObject)
	if err != nil {
		c.world.Remove(entity)
		return nil, fmt.Errorf("assign object identity: %w", err)
	}

	obj := &SharedObject{ref: ref, kindID: kindID, kind: kind, entity: entity}
	if !c.attach(obj, parent) {
		c.ids.Release(c.world, entity)
		return nil, fmt.Errorf("%w: %d", ErrParentOccupied, parentRef)
	}
	c.objects[ref] = obj

	c.logger.Debug().
		Uint("ref", uint(ref)).
		Str("kind", kind.Name).
		Uint("parent", uint(parentRef)).
		Msg("spawned object")
	return obj, nil
}

// Reparent moves an object to another holder.
func (c *ObjectCoordinator) Reparent(objectRef, parentRef netconfig.NetRef) error {
	obj, ok := c.objects[objectRef]
	if !ok {
		return fmt.Errorf("%w: %d", ErrObjectNotFound, objectRef)
	}
	parent, ok := c.parents[parentRef]
	if !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, parentRef)
	}
	if obj.parent != nil && obj.parent.Ref() == parentRef {
		return nil
	}
	if parent.HasObject() {
		return fmt.Errorf("%w: %d", ErrParentOccupied, parentRef)
	}

	old := obj.parent
	if old != nil {
		old.Release()
	}
	if !c.attach(obj, parent) {
		if old != nil {
			c.attach(obj, old)
		}
		return fmt.Errorf("%w: %d", ErrParentOccupied, parentRef)
	}
	return nil
}

// Destroy tells every participant to clear the object from its parent, then
// removes the object and frees its identity.
func (c *ObjectCoordinator) Destroy(objectRef netconfig.NetRef) error {
	obj, ok := c.objects[objectRef]
	if !ok {
		return fmt.Errorf("%w: %d", ErrObjectNotFound, objectRef)
	}

	evt := messages.ClearParentEvent{Object: obj.ref}
	if obj.parent != nil {
		evt.Parent = obj.parent.Ref()
	}
	c.out.Broadcast(evt)
	c.clearOnParent(obj, evt)

	delete(c.objects, objectRef)
	c.ids.Release(c.world, obj.entity)

	c.logger.Debug().Uint("ref", uint(objectRef)).Msg("destroyed object")
	return nil
}

// Object resolves a live object.
func (c *ObjectCoordinator) Object(ref netconfig.NetRef) (*SharedObject, bool) {
	obj, ok := c.objects[ref]
	return obj, ok
}

// Parent resolves a registered parent.
func (c *ObjectCoordinator) Parent(ref netconfig.NetRef) (holder.Parent, bool) {
	p, ok := c.parents[ref]
	return p, ok
}

func (c *ObjectCoordinator) ObjectCount() int { return len(c.objects) }

// OnCleared observes the server's own clear-from-parent notifications.
func (c *ObjectCoordinator) OnCleared(fn func(messages.ClearParentEvent)) func() {
	return c.cleared.Subscribe(fn)
}

func (c *ObjectCoordinator) attach(obj *SharedObject, parent holder.Parent) bool {
	if !parent.TryAcquire(obj) {
		return false
	}
	obj.parent = parent
	if c.world.Valid(obj.entity) {
		data := netcomponents.NetSharedObject.Get(c.world.Entry(obj.entity))
		data.Parent = parent.Ref()
	}
	return true
}

func (c *ObjectCoordinator) clearOnParent(obj *SharedObject, evt messages.ClearParentEvent) {
	if obj.parent != nil {
		obj.parent.Release()
		obj.parent = nil
	}
	c.cleared.Emit(evt)
}
