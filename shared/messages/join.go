package messages

import "github.com/automoto/kitchen-mp/shared/netconfig"

// JoinRequest is sent by a client after connecting to request joining the game.
type JoinRequest struct {
	Version    string
	PlayerName string
}

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	Participant netconfig.ParticipantID
	HolderRef   netconfig.NetRef // the player's own holder
	ServerName  string
	TickRate    int
	Capacity    int
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
