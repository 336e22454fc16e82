package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

// ErrNotAdmitted is logged when a request arrives from a connection that has
// not completed the join handshake.
var ErrNotAdmitted = errors.New("sender has not joined")

const commandQueueSize = 256

// SessionConfig configures one match instance.
type SessionConfig struct {
	ID              string // generated when empty
	Name            string
	TickRate        int
	Capacity        int
	RequiredVersion string
	Counters        int
	Match           session.Config
	Catalog         *catalog.Catalog
}

// Session is the authoritative state of one match. Transport goroutines only
// enqueue commands; ProcessCommands and Advance run on the game loop
// goroutine, which makes every check-then-act sequence atomic.
type Session struct {
	id     string
	cfg    SessionConfig
	world  donburi.World
	ids    NetworkIdentity
	feed   Feed
	logger zerolog.Logger

	match        *session.Match
	readiness    *ReadinessTracker
	admission    AdmissionPolicy
	participants *Participants
	objects      *ObjectCoordinator
	counters     []*Holder
	stateEntity  donburi.Entity

	commands    chan command
	playerCount atomic.Int32
}

// NewSession builds the match world: the replicated game state entity and
// the counters.
func NewSession(cfg SessionConfig, world donburi.World, ids NetworkIdentity, feed Feed) (*Session, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if feed == nil {
		feed = nopFeed{}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	s := &Session{
		id:           cfg.ID,
		cfg:          cfg,
		world:        world,
		ids:          ids,
		feed:         feed,
		admission:    AdmissionPolicy{Capacity: cfg.Capacity, RequiredVersion: cfg.RequiredVersion},
		participants: NewParticipants(),
		commands:     make(chan command, commandQueueSize),
	}
	s.logger = log.With().Str("component", "session").Str("session", s.id).Logger()
	s.readiness = NewReadinessTracker(s.participants.IDs)
	s.objects = NewObjectCoordinator(world, cfg.Catalog, ids, s)

	s.stateEntity = world.Create(netcomponents.NetGameState)
	s.match = session.NewAuthority(cfg.Match, s.publishState)
	s.publishState(s.match.State())
	if _, err := ids.Assign(world, s.stateEntity, netcomponents.NetGameState); err != nil {
		return nil, fmt.Errorf("assign game state identity: %w", err)
	}

	s.match.OnPhaseChanged(func(c session.PhaseChange) {
		s.logger.Info().
			Str("from", c.Previous.String()).
			Str("to", c.Current.String()).
			Msg("phase changed")
		s.publishEvent("phase", 0)
	})

	for i := 0; i < cfg.Counters; i++ {
		h, err := NewHolder(world, ids, netcomponents.HolderCounter)
		if err != nil {
			return nil, fmt.Errorf("create counter %d: %w", i, err)
		}
		s.objects.RegisterParent(h)
		s.counters = append(s.counters, h)
	}

	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Name() string { return s.cfg.Name }

// Match exposes the authoritative match for queries and observers.
func (s *Session) Match() *session.Match { return s.match }

func (s *Session) Phase() netconfig.MatchPhase { return s.match.Phase() }

// PlayerCount is safe to call from any goroutine.
func (s *Session) PlayerCount() int { return int(s.playerCount.Load()) }

func (s *Session) Capacity() int { return s.cfg.Capacity }

// Joinable reports whether a join request would currently pass the lobby
// and capacity checks.
func (s *Session) Joinable() bool {
	return s.match.IsWaitingToStart() && s.PlayerCount() < s.cfg.Capacity
}

// Admitted reports whether conn completed the join handshake. Call it from
// the game loop goroutine.
func (s *Session) Admitted(conn Conn) bool {
	_, ok := s.participants.ByConn(conn)
	return ok
}

func (s *Session) Objects() *ObjectCoordinator { return s.objects }

func (s *Session) Readiness() *ReadinessTracker { return s.readiness }

// Counters returns the refs of the session's counters in creation order.
func (s *Session) Counters() []netconfig.NetRef {
	refs := make([]netconfig.NetRef, len(s.counters))
	for i, h := range s.counters {
		refs[i] = h.Ref()
	}
	return refs
}

// Broadcast sends msg to every admitted participant.
func (s *Session) Broadcast(msg any) {
	s.participants.Each(func(p *Participant) {
		s.send(p.Conn, msg)
	})
}

// Join queues a join request.
func (s *Session) Join(conn Conn, req messages.JoinRequest) {
	s.enqueue(joinCommand{conn: conn, req: req})
}

// Leave queues the departure of a connection.
func (s *Session) Leave(conn Conn) { s.enqueue(leaveCommand{conn: conn}) }

// Ready queues a ready intent.
func (s *Session) Ready(conn Conn) { s.enqueue(readyCommand{conn: conn}) }

// Spawn queues a spawn request.
func (s *Session) Spawn(conn Conn, req messages.SpawnRequest) {
	s.enqueue(spawnCommand{conn: conn, req: req})
}

// Reparent queues a reparent request.
func (s *Session) Reparent(conn Conn, req messages.ReparentRequest) {
	s.enqueue(reparentCommand{conn: conn, req: req})
}

// Destroy queues a destroy request.
func (s *Session) Destroy(conn Conn, req messages.DestroyRequest) {
	s.enqueue(destroyCommand{conn: conn, req: req})
}

// ProcessCommands applies every queued command in arrival order.
func (s *Session) ProcessCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

// Advance runs the match timers for dt of elapsed time.
func (s *Session) Advance(dt time.Duration) {
	if err := s.match.Tick(dt.Seconds()); err != nil {
		s.logger.Error().Err(err).Msg("match tick failed")
	}
}

func (s *Session) enqueue(cmd command) {
	select {
	case s.commands <- cmd:
	default:
		s.logger.Warn().Str("command", fmt.Sprintf("%T", cmd)).Msg("command queue full, dropping")
	}
}

func (s *Session) apply(cmd command) {
	switch c := cmd.(type) {
	case joinCommand:
		s.handleJoin(c.conn, c.req)
	case leaveCommand:
		s.handleLeave(c.conn)
	case readyCommand:
		s.handleReady(c.conn)
	case spawnCommand:
		s.handleSpawn(c.conn, c.req)
	case reparentCommand:
		s.handleReparent(c.conn, c.req)
	case destroyCommand:
		s.handleDestroy(c.conn, c.req)
	}
}

func (s *Session) handleJoin(conn Conn, req messages.JoinRequest) {
	if p, ok := s.participants.ByConn(conn); ok {
		s.logger.Warn().Uint64("participant", uint64(p.ID)).Msg("duplicate join request ignored")
		return
	}

	decision := s.admission.Evaluate(AdmissionRequest{
		Phase:     s.match.Phase(),
		Connected: s.participants.Count(),
		Version:   req.Version,
	})
	if !decision.Approved {
		s.logger.Info().
			Str("conn", conn.Id()).
			Str("player", req.PlayerName).
			Str("reason", decision.Reason).
			Msg("join rejected")
		s.send(conn, messages.JoinRejected{Reason: decision.Reason})
		return
	}

	id := s.participants.NextID()
	h, err := NewHolder(s.world, s.ids, netcomponents.HolderPlayer, netcomponents.NetPlayer)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create player")
		s.send(conn, messages.JoinRejected{Reason: "Server error"})
		return
	}
	netcomponents.NetPlayer.SetValue(s.world.Entry(h.Entity()), netcomponents.NetPlayerData{
		Participant: id,
		Name:        req.PlayerName,
	})

	p := &Participant{ID: id, Name: req.PlayerName, Conn: conn, Holder: h}
	s.participants.Add(p)
	s.playerCount.Store(int32(s.participants.Count()))
	s.readiness.Reset(id)
	s.objects.RegisterParent(h)

	s.logger.Info().
		Uint64("participant", uint64(id)).
		Str("player", req.PlayerName).
		Int("players", s.participants.Count()).
		Msg("join accepted")

	s.send(conn, messages.JoinAccepted{
		Participant: id,
		HolderRef:   h.Ref(),
		ServerName:  s.cfg.Name,
		TickRate:    s.cfg.TickRate,
		Capacity:    s.cfg.Capacity,
	})
	s.publishEvent("joined", id)
}

func (s *Session) handleLeave(conn Conn) {
	p, ok := s.participants.Remove(conn)
	if !ok {
		return
	}
	s.playerCount.Store(int32(s.participants.Count()))

	s.objects.UnregisterParent(p.Holder.Ref())
	s.ids.Release(s.world, p.Holder.Entity())

	s.logger.Info().
		Uint64("participant", uint64(p.ID)).
		Int("players", s.participants.Count()).
		Msg("participant left")
	s.publishEvent("left", p.ID)

	// The leaver may have been the last one everybody was waiting on.
	if s.match.IsWaitingToStart() && s.readiness.AllReady() {
		s.beginCountdown()
	}
}

func (s *Session) handleReady(conn Conn) {
	p, ok := s.participants.ByConn(conn)
	if !ok {
		s.logger.Warn().Err(ErrNotAdmitted).Str("conn", conn.Id()).Msg("ready intent dropped")
		return
	}
	if s.readiness.MarkReady(p.ID) {
		s.beginCountdown()
	}
}

func (s *Session) beginCountdown() {
	started, err := s.match.BeginCountdown()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin countdown")
		return
	}
	if started {
		s.logger.Info().Int("players", s.participants.Count()).Msg("all participants ready")
	}
}

func (s *Session) handleSpawn(conn Conn, req messages.SpawnRequest) {
	if _, ok := s.participants.ByConn(conn); !ok {
		s.logger.Warn().Err(ErrNotAdmitted).Str("conn", conn.Id()).Msg("spawn request dropped")
		return
	}
	res := messages.SpawnResult{RequestID: req.RequestID}
	obj, err := s.objects.Spawn(req.Kind, req.Parent)
	if err != nil {
		s.logger.Warn().Err(err).Int("kind", req.Kind).Uint("parent", uint(req.Parent)).Msg("spawn failed")
		res.Error = err.Error()
	} else {
		res.Object = obj.Ref()
	}
	s.send(conn, res)
}

func (s *Session) handleReparent(conn Conn, req messages.ReparentRequest) {
	if _, ok := s.participants.ByConn(conn); !ok {
		s.logger.Warn().Err(ErrNotAdmitted).Str("conn", conn.Id()).Msg("reparent request dropped")
		return
	}
	res := messages.ReparentResult{RequestID: req.RequestID, Object: req.Object}
	if err := s.objects.Reparent(req.Object, req.Parent); err != nil {
		s.logger.Warn().Err(err).Uint("ref", uint(req.Object)).Uint("parent", uint(req.Parent)).Msg("reparent failed")
		res.Error = err.Error()
	}
	s.send(conn, res)
}

func (s *Session) handleDestroy(conn Conn, req messages.DestroyRequest) {
	if _, ok := s.participants.ByConn(conn); !ok {
		s.logger.Warn().Err(ErrNotAdmitted).Str("conn", conn.Id()).Msg("destroy request dropped")
		return
	}
	res := messages.DestroyResult{RequestID: req.RequestID, Object: req.Object}
	if err := s.objects.Destroy(req.Object); err != nil {
		s.logger.Warn().Err(err).Uint("ref", uint(req.Object)).Msg("destroy failed")
		res.Error = err.Error()
	}
	s.send(conn, res)
}

func (s *Session) send(conn Conn, msg any) {
	if err := conn.SendMessage(msg); err != nil {
		s.logger.Warn().Err(err).Str("conn", conn.Id()).Str("message", fmt.Sprintf("%T", msg)).Msg("send failed")
	}
}

func (s *Session) publishState(st netcomponents.NetGameStateData) {
	if !s.world.Valid(s.stateEntity) {
		return
	}
	netcomponents.NetGameState.SetValue(s.world.Entry(s.stateEntity), st)
}

func (s *Session) publishEvent(typ string, participant netconfig.ParticipantID) {
	evt := messages.MatchEvent{
		Session:     s.id,
		Type:        typ,
		Participant: participant,
		Players:     s.participants.Count(),
		Timestamp:   time.Now().UnixMilli(),
	}
	if typ == "phase" {
		evt.Phase = s.match.Phase().String()
	}
	s.feed.Publish(evt)
}
