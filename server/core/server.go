package core

import (
	"fmt"

	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

// Server binds one Session to the websocket transport.
type Server struct {
	session   *Session
	loop      *GameLoop
	transport *transports.WsServerTransport
	feed      *NATSFeed
}

// NewServer creates the world, the session and the router callbacks.
func NewServer(cfg *Config) (*Server, error) {
	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, err
	}

	world := donburi.NewWorld()
	srvsync.UseEsync(world)

	sc := cfg.SessionConfig()
	sc.Catalog = cat

	s := &Server{}

	var feed Feed
	if cfg.NATSURL != "" {
		sc.ID = uuid.NewString()
		nf, err := NewNATSFeed(cfg.NATSURL, sc.ID)
		if err != nil {
			log.Warn().Err(err).Msg("match event feed disabled")
		} else {
			s.feed = nf
			feed = nf
		}
	}

	sess, err := NewSession(sc, world, esyncIdentity{}, feed)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.session = sess

	// DoSync runs on the loop goroutine right after ProcessCommands, so the
	// participant set is stable here. Rejected or not yet admitted peers get
	// empty snapshots.
	srvsync.AddNetworkFilter(func(client *router.NetworkClient, _ *donburi.Entry) bool {
		return sess.Admitted(client)
	})
	s.loop = NewGameLoop(sess, clockwork.NewRealClock(), cfg.TickRate, srvsync.DoSync)
	s.setupRouterCallbacks()
	return s, nil
}

// Start runs the game loop and blocks serving the transport.
func (s *Server) Start(port uint) error {
	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

func (s *Server) Stop() {
	s.loop.Stop()
	if s.feed != nil {
		s.feed.Close()
	}
}

func (s *Server) Session() *Session { return s.session }

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		log.Info().Str("conn", client.Id()).Msg("client connected")
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("conn", client.Id()).Msg("client disconnected")
		s.session.Leave(client)
	})

	router.On(func(client *router.NetworkClient, msg messages.JoinRequest) {
		s.session.Join(client, msg)
	})

	router.On(func(client *router.NetworkClient, _ messages.ReadyIntent) {
		s.session.Ready(client)
	})

	router.On(func(client *router.NetworkClient, msg messages.SpawnRequest) {
		s.session.Spawn(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.ReparentRequest) {
		s.session.Reparent(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.DestroyRequest) {
		s.session.Destroy(client, msg)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Error().Err(err).Str("conn", client.Id()).Msg("client error")
	})
}
