package netcomponents

import (
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/yohamta/donburi"
)

// NetGameStateData carries the replicated match values. One entity per
// session holds it.
type NetGameStateData struct {
	Phase          netconfig.MatchPhase
	CountdownTimer float64 // seconds left before play starts
	PlayTimer      float64 // seconds left in the match
	PlayTimerMax   float64
}

var NetGameState = donburi.NewComponentType[NetGameStateData]()
