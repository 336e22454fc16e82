package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Feed publishes match events for observers outside the game protocol.
type Feed interface {
	Publish(evt messages.MatchEvent)
}

type nopFeed struct{}

func (nopFeed) Publish(messages.MatchEvent) {}

// NATSFeed publishes match events as JSON on kitchen.<session>.events.
type NATSFeed struct {
	nc      *nats.Conn
	subject string
}

// NewNATSFeed connects to url and publishes events for sessionID.
func NewNATSFeed(url, sessionID string) (*NATSFeed, error) {
	opts := []nats.Option{
		nats.Name("kitchen-server-" + sessionID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSFeed{nc: nc, subject: "kitchen." + sessionID + ".events"}, nil
}

func (f *NATSFeed) Publish(evt messages.MatchEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("failed to marshal match event")
		return
	}
	if err := f.nc.Publish(f.subject, data); err != nil {
		log.Warn().Err(err).Str("subject", f.subject).Msg("failed to publish match event")
	}
}

// Close flushes pending events and closes the connection.
func (f *NATSFeed) Close() {
	if err := f.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
	}
}
