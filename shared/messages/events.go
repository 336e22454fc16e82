package messages

import "github.com/automoto/kitchen-mp/shared/netconfig"

// ClearParentEvent is broadcast before an object is destroyed so every
// participant releases its local holder reference first.
type ClearParentEvent struct {
	Object netconfig.NetRef
	Parent netconfig.NetRef
}

// SpawnResult answers a SpawnRequest. Error is empty on success.
type SpawnResult struct {
	RequestID uint32
	Object    netconfig.NetRef
	Error     string
}

// ReparentResult answers a ReparentRequest.
type ReparentResult struct {
	RequestID uint32
	Object    netconfig.NetRef
	Error     string
}

// DestroyResult answers a DestroyRequest.
type DestroyResult struct {
	RequestID uint32
	Object    netconfig.NetRef
	Error     string
}

// MatchEvent is published on the external event feed.
type MatchEvent struct {
	Session     string                  `json:"session"`
	Type        string                  `json:"type"` // "phase" | "joined" | "left"
	Phase       string                  `json:"phase,omitempty"`
	Participant netconfig.ParticipantID `json:"participant,omitempty"`
	Players     int                     `json:"players"`
	Timestamp   int64                   `json:"ts"` // Unix ms
}
