// Package netconfig defines lightweight types shared between client and server
// for network serialization. It must stay free of transport and ECS imports so
// every role can depend on it.
package netconfig

// MatchPhase is the authoritative lifecycle phase of a match.
type MatchPhase int

const (
	PhaseWaitingToStart   MatchPhase = iota // Lobby, collecting ready intents
	PhaseCountdownToStart                   // Pre-match countdown (3, 2, 1)
	PhaseGamePlaying                        // Active gameplay
	PhaseGameOver                           // Match over, terminal
)

var phaseNames = map[MatchPhase]string{
	PhaseWaitingToStart:   "waiting_to_start",
	PhaseCountdownToStart: "countdown_to_start",
	PhaseGamePlaying:      "game_playing",
	PhaseGameOver:         "game_over",
}

func (p MatchPhase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParticipantID identifies an admitted connection. IDs start at 1 and are
// recycled only after the owning connection leaves.
type ParticipantID uint64

// NetRef is the network identity of a replicated entity. Zero means none.
type NetRef uint

const NoRef NetRef = 0

// Match and session defaults.
const (
	MaxPlayers        = 4
	CountdownDuration = 3.0  // seconds
	PlayTimerMax      = 90.0 // seconds
	DefaultTickRate   = 20
	DefaultPort       = 7373
	DefaultCounters   = 4
)

// Admission rejection reasons shown to joining players.
const (
	ReasonGameStarted     = "Game has already started"
	ReasonGameFull        = "Game is full"
	ReasonVersionMismatch = "Version mismatch"
)

// ActionID represents an abstract input intent.
type ActionID int

const (
	ActionNone ActionID = iota
	ActionInteract
	ActionPause
	ActionCount // Must be last
)

func (a ActionID) String() string {
	switch a {
	case ActionInteract:
		return "interact"
	case ActionPause:
		return "pause"
	default:
		return "none"
	}
}
