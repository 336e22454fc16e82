package protocol

import (
	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId
const (
	SyncIDNetGameState    uint = 10
	SyncIDNetSharedObject uint = 11
	SyncIDNetHolder       uint = 12
	SyncIDNetPlayer       uint = 13
)

// RegisterComponents registers all network components with necs for serialization.
// This must be called by both server and client before any network operations.
// All components are discrete state, so none use interpolation.
func RegisterComponents() error {
	if err := esync.RegisterComponent(
		SyncIDNetGameState,
		netcomponents.NetGameStateData{},
		netcomponents.NetGameState,
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetSharedObject,
		netcomponents.NetSharedObjectData{},
		netcomponents.NetSharedObject,
	); err != nil {
		return err
	}

	if err := esync.RegisterComponent(
		SyncIDNetHolder,
		netcomponents.NetHolderData{},
		netcomponents.NetHolder,
	); err != nil {
		return err
	}

	return esync.RegisterComponent(
		SyncIDNetPlayer,
		netcomponents.NetPlayerData{},
		netcomponents.NetPlayer,
	)
}
