package netcomponents

import (
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

// NetSharedObjectData describes a server-spawned interactive object.
type NetSharedObjectData struct {
	Kind   int              // index into the object catalog
	Parent netconfig.NetRef // holder currently owning the object, NoRef if none
}

var NetSharedObject = donburi.NewComponentType[NetSharedObjectData]()

// HolderType tells clients what a holder entity represents.
type HolderType int

const (
	HolderCounter HolderType = iota
	HolderPlayer
)

// NetHolderData is attached to every entity that can hold one shared object.
type NetHolderData struct {
	Type HolderType
	Held netconfig.NetRef // NoRef when empty
}

var NetHolder = donburi.NewComponentType[NetHolderData]()

// NetPlayerData links a player entity to its participant.
type NetPlayerData struct {
	Participant netconfig.ParticipantID
	Name        string
}

var NetPlayer = donburi.NewComponentType[NetPlayerData]()
