package core

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Ticker is the part of a session driven once per loop tick.
type Ticker interface {
	ProcessCommands()
	Advance(dt time.Duration)
}

// GameLoop drives a session at a fixed tick rate: queued commands, match
// timers, then replication.
type GameLoop struct {
	session  Ticker
	clock    clockwork.Clock
	tickRate int
	sync     func() error

	last     time.Time
	stopChan chan struct{}
	done     chan struct{}
}

func NewGameLoop(session Ticker, clock clockwork.Clock, tickRate int, sync func() error) *GameLoop {
	if tickRate <= 0 {
		tickRate = 20
	}
	if sync == nil {
		sync = func() error { return nil }
	}
	return &GameLoop{
		session:  session,
		clock:    clock,
		tickRate: tickRate,
		sync:     sync,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (g *GameLoop) Interval() time.Duration {
	return time.Second / time.Duration(g.tickRate)
}

func (g *GameLoop) Run() {
	defer close(g.done)

	ticker := g.clock.NewTicker(g.Interval())
	defer ticker.Stop()
	g.last = g.clock.Now()

	log.Info().Int("tickRate", g.tickRate).Msg("game loop started")

	for {
		select {
		case <-g.stopChan:
			log.Info().Msg("game loop stopped")
			return
		case <-ticker.Chan():
			g.tick()
		}
	}
}

// Stop ends Run and waits for the current tick to finish.
func (g *GameLoop) Stop() {
	close(g.stopChan)
	<-g.done
}

func (g *GameLoop) tick() {
	now := g.clock.Now()
	dt := now.Sub(g.last)
	g.last = now

	g.session.ProcessCommands()
	g.session.Advance(dt)

	if err := g.sync(); err != nil {
		log.Error().Err(err).Msg("sync error")
	}
}
