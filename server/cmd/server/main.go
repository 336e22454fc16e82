package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/kitchen-mp/server/core"
	"github.com/automoto/kitchen-mp/shared/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := core.LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	server, err := core.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	var reg *core.Registration
	if cfg.MasterURL != "" {
		reg = core.NewRegistration(core.RegistrationConfig{
			MasterURL:  cfg.MasterURL,
			Name:       cfg.Name,
			Address:    cfg.PublicAddress,
			Version:    cfg.Version,
			Region:     cfg.Region,
			MaxPlayers: cfg.Capacity,
			Interval:   cfg.HeartbeatInterval,
		}, server.Session())
		reg.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down server")
		if reg != nil {
			reg.Stop()
		}
		server.Stop()
		os.Exit(0)
	}()

	log.Info().
		Str("name", cfg.Name).
		Str("session", server.Session().ID()).
		Uint("port", cfg.Port).
		Int("tickRate", cfg.TickRate).
		Int("capacity", cfg.Capacity).
		Str("version", cfg.Version).
		Msg("starting kitchen server")
	if err := server.Start(cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func setupLogging(cfg *core.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
