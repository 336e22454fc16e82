package core

import (
	"fmt"

	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/yohamta/donburi"
)

// NetworkIdentity assigns and releases the network identities of replicated
// entities.
type NetworkIdentity interface {
	// Assign starts replicating the given components of entity and returns
	// its identity.
	Assign(world donburi.World, entity donburi.Entity, components ...donburi.IComponentType) (netconfig.NetRef, error)
	// Release stops replicating entity and removes it from the world.
	Release(world donburi.World, entity donburi.Entity)
}

// esyncIdentity backs NetworkIdentity with necs esync network ids.
type esyncIdentity struct{}

func (esyncIdentity) Assign(world donburi.World, entity donburi.Entity, components ...donburi.IComponentType) (netconfig.NetRef, error) {
	args := make([]any, len(components))
	for i, c := range components {
		args[i] = c
	}
	if err := srvsync.NetworkSync(world, &entity, args...); err != nil {
		return netconfig.NoRef, fmt.Errorf("network sync: %w", err)
	}
	nid := esync.GetNetworkId(world.Entry(entity))
	if nid == nil {
		return netconfig.NoRef, fmt.Errorf("network sync: entity %v has no network id", entity)
	}
	return netconfig.NetRef(*nid), nil
}

// Release removes the entity, which drops it from every snapshot. srvsync
// keeps its component list keyed by the dead entity: necs has no API to
// unregister a synced entity, so that map grows by one entry per destroyed
// object for the life of the process.
// TODO: drop the entry once necs exposes an unsync call.
func (esyncIdentity) Release(world donburi.World, entity donburi.Entity) {
	if world.Valid(entity) {
		world.Remove(entity)
	}
}
