package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/observer"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("not connected")

// ReasonDisconnected is reported when the connection drops before the
// server answers the join request.
const ReasonDisconnected = "Disconnected"

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateFailed
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// FailedToJoin reports why a join attempt ended without admission.
type FailedToJoin struct {
	Reason string
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
// The replica view is only touched by Update.
type Client struct {
	mu sync.RWMutex

	state       ClientState
	lastError   error
	participant netconfig.ParticipantID
	holderRef   netconfig.NetRef
	serverName  string
	tickRate    int
	capacity    int
	conn        *websocket.Conn

	// Snapshots and server notices share one inbox so Update applies them
	// in arrival order. Back-to-back snapshots coalesce, latest wins.
	inboxMu sync.Mutex
	inbox   []any

	nextRequest atomic.Uint32
	pendingMu   sync.Mutex
	pending     PendingRequests

	view   *View
	logger zerolog.Logger

	tryingToJoin observer.Event[struct{}]
	failedToJoin observer.Event[FailedToJoin]
	joined       observer.Event[messages.JoinAccepted]
	spawnResult  observer.Event[messages.SpawnResult]
	moveResult   observer.Event[messages.ReparentResult]
	destroyRes   observer.Event[messages.DestroyResult]
}

func NewClient(cfg session.Config, cat *catalog.Catalog) *Client {
	c := &Client{
		state:  StateDisconnected,
		logger: log.With().Str("component", "client").Logger(),
	}
	c.view = NewView(cfg, cat, func() error {
		return c.SendMessage(messages.ReadyIntent{})
	})
	return c
}

// Connect dials the server in a background goroutine and initiates the join
// handshake. TryingToJoin fires before it returns.
func (c *Client) Connect(address, version, playerName string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	c.tryingToJoin.Emit(struct{}{})

	router.OnConnect(func(_ *router.NetworkClient) {
		c.logger.Info().Str("address", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		err := c.SendMessage(messages.JoinRequest{
			Version:    version,
			PlayerName: playerName,
		})
		if err != nil {
			c.fail(fmt.Errorf("send join request: %w", err), ReasonDisconnected)
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		c.handleJoinAccepted(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		c.handleJoinRejected(msg)
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) { c.queue(snapshot) })

	router.On(func(_ *router.NetworkClient, evt messages.ClearParentEvent) { c.queue(evt) })
	router.On(func(_ *router.NetworkClient, res messages.SpawnResult) { c.queue(res) })
	router.On(func(_ *router.NetworkClient, res messages.ReparentResult) { c.queue(res) })
	router.On(func(_ *router.NetworkClient, res messages.DestroyResult) { c.queue(res) })

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.handleDisconnect(err)
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.logger.Error().Err(err).Msg("router error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.fail(fmt.Errorf("connection failed: %w", err), ReasonDisconnected)
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) handleJoinAccepted(msg messages.JoinAccepted) {
	c.logger.Info().
		Uint64("participant", uint64(msg.Participant)).
		Str("server", msg.ServerName).
		Int("tickRate", msg.TickRate).
		Msg("join accepted")
	c.mu.Lock()
	c.participant = msg.Participant
	c.holderRef = msg.HolderRef
	c.serverName = msg.ServerName
	c.tickRate = msg.TickRate
	c.capacity = msg.Capacity
	c.state = StateJoinedGame
	c.mu.Unlock()
	c.queue(msg)
}

func (c *Client) handleJoinRejected(msg messages.JoinRejected) {
	c.logger.Warn().Str("reason", msg.Reason).Msg("join rejected")
	c.fail(fmt.Errorf("join rejected: %s", msg.Reason), msg.Reason)
}

// handleDisconnect reports FailedToJoin when the connection drops while the
// join is still pending.
func (c *Client) handleDisconnect(err error) {
	c.logger.Info().Err(err).Msg("disconnected")
	c.mu.Lock()
	pending := c.state == StateConnecting || c.state == StateConnected
	if c.state != StateFailed {
		c.state = StateDisconnected
	}
	c.conn = nil
	c.mu.Unlock()

	if pending {
		c.queue(FailedToJoin{Reason: ReasonDisconnected})
	}
}

// fail records err once. FailedToJoin is only reported while the join is
// still pending.
func (c *Client) fail(err error, reason string) {
	c.mu.Lock()
	if c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	pending := c.state == StateConnecting || c.state == StateConnected
	c.state = StateFailed
	c.lastError = err
	c.mu.Unlock()
	if pending {
		c.queue(FailedToJoin{Reason: reason})
	}
}

const inboxLimit = 256

func (c *Client) queue(evt any) {
	c.inboxMu.Lock()
	defer c.inboxMu.Unlock()

	if _, ok := evt.(esync.WorldSnapshot); ok && len(c.inbox) > 0 {
		if _, last := c.inbox[len(c.inbox)-1].(esync.WorldSnapshot); last {
			c.inbox[len(c.inbox)-1] = evt
			return
		}
	}
	if len(c.inbox) >= inboxLimit {
		c.logger.Warn().Str("event", fmt.Sprintf("%T", evt)).Msg("event queue full, dropping")
		return
	}
	c.inbox = append(c.inbox, evt)
}

// Update applies queued snapshots and server notices to the view in arrival
// order and fires observers. Call it from one goroutine, once per frame.
func (c *Client) Update() {
	c.inboxMu.Lock()
	batch := c.inbox
	c.inbox = nil
	c.inboxMu.Unlock()

	for _, evt := range batch {
		c.dispatch(evt)
	}
}

func (c *Client) dispatch(evt any) {
	switch e := evt.(type) {
	case esync.WorldSnapshot:
		c.view.ApplySnapshot(decodeSnapshot(e))
	case messages.JoinAccepted:
		c.joined.Emit(e)
	case FailedToJoin:
		c.failedToJoin.Emit(e)
	case messages.ClearParentEvent:
		c.view.ClearParent(e)
	case messages.SpawnResult:
		c.resolve(e.RequestID, e.Error)
		c.spawnResult.Emit(e)
	case messages.ReparentResult:
		c.resolve(e.RequestID, e.Error)
		c.moveResult.Emit(e)
	case messages.DestroyResult:
		c.resolve(e.RequestID, e.Error)
		c.destroyRes.Emit(e)
	}
}

func decodeSnapshot(snapshot esync.WorldSnapshot) []EntityState {
	out := make([]EntityState, 0, len(snapshot))
	for _, ent := range snapshot {
		state := EntityState{Ref: netconfig.NetRef(ent.Id)}
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				continue
			}
			state.Components = append(state.Components, instance)
		}
		out = append(out, state)
	}
	return out
}

// HandleAction routes a local input intent to the match replica.
func (c *Client) HandleAction(action netconfig.ActionID) error {
	return c.view.Match().HandleAction(action)
}

// RequestSpawn asks the server to spawn kind on parent and returns the
// request id echoed in the SpawnResult.
func (c *Client) RequestSpawn(kind int, parent netconfig.NetRef) (uint32, error) {
	id := c.nextRequest.Add(1)
	return id, c.sendRequest(id, messages.SpawnRequest{RequestID: id, Kind: kind, Parent: parent})
}

// RequestReparent asks the server to move object onto parent.
func (c *Client) RequestReparent(object, parent netconfig.NetRef) (uint32, error) {
	id := c.nextRequest.Add(1)
	return id, c.sendRequest(id, messages.ReparentRequest{RequestID: id, Object: object, Parent: parent})
}

// RequestDestroy asks the server to destroy object.
func (c *Client) RequestDestroy(object netconfig.NetRef) (uint32, error) {
	id := c.nextRequest.Add(1)
	return id, c.sendRequest(id, messages.DestroyRequest{RequestID: id, Object: object})
}

// sendRequest records req before sending so a fast result always finds it.
func (c *Client) sendRequest(id uint32, req any) error {
	c.pendingMu.Lock()
	c.pending.Store(id, req)
	c.pendingMu.Unlock()

	if err := c.SendMessage(req); err != nil {
		c.pendingMu.Lock()
		c.pending.Take(id)
		c.pendingMu.Unlock()
		return err
	}
	return nil
}

// resolve matches a result to its request for logging.
func (c *Client) resolve(id uint32, errText string) {
	c.pendingMu.Lock()
	rec, ok := c.pending.Take(id)
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Debug().Uint32("request", id).Msg("result for unknown request")
		return
	}
	ev := c.logger.Debug()
	if errText != "" {
		ev = c.logger.Warn().Str("error", errText)
	}
	ev.Uint32("request", id).Str("kind", fmt.Sprintf("%T", rec.Request)).Msg("request resolved")
}

func (c *Client) View() *View { return c.view }

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) Participant() netconfig.ParticipantID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participant
}

// HolderRef is the player's own holder, valid once joined.
func (c *Client) HolderRef() netconfig.NetRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.holderRef
}

func (c *Client) ServerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName
}

func (c *Client) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacity
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) OnTryingToJoin(fn func()) func() {
	return c.tryingToJoin.Subscribe(func(struct{}) { fn() })
}

func (c *Client) OnFailedToJoin(fn func(FailedToJoin)) func() { return c.failedToJoin.Subscribe(fn) }

func (c *Client) OnJoined(fn func(messages.JoinAccepted)) func() { return c.joined.Subscribe(fn) }

func (c *Client) OnSpawnResult(fn func(messages.SpawnResult)) func() {
	return c.spawnResult.Subscribe(fn)
}

func (c *Client) OnReparentResult(fn func(messages.ReparentResult)) func() {
	return c.moveResult.Subscribe(fn)
}

func (c *Client) OnDestroyResult(fn func(messages.DestroyResult)) func() {
	return c.destroyRes.Subscribe(fn)
}
