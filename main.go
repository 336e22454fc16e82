package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/kitchen-mp/network"
	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/protocol"
	"github.com/automoto/kitchen-mp/shared/replicated"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version is the client version sent in the join request.
var Version = "dev"

const frameRate = 30

func main() {
	address := flag.String("server", fmt.Sprintf("localhost:%d", netconfig.DefaultPort), "Server address (host:port)")
	name := flag.String("name", "Chef", "Player name")
	catalogPath := flag.String("catalog", "", "Relative path to a YAML object catalog (must match the server's)")
	level := flag.String("loglevel", "info", "Log level")
	flag.Parse()

	zerolog.SetGlobalLevel(parseLevel(*level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Register network components for client-side deserialization
	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register network components")
	}

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	client := network.NewClient(session.DefaultConfig(), cat)
	watch(client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client.Connect(*address, Version, *name)
	defer client.Disconnect()

	cmds, errs := network.ReadCommands(ctx, os.Stdin, cat)
	fmt.Println(network.Usage)

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.Update()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Println(err)
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if cmd.Type == network.CmdQuit {
				return
			}
			run(client, cmd)
		}
	}
}

func run(client *network.Client, cmd network.Command) {
	parent := cmd.Parent
	if parent == netconfig.NoRef {
		parent = client.HolderRef()
	}

	var err error
	switch cmd.Type {
	case network.CmdAction:
		err = client.HandleAction(cmd.Action)
	case network.CmdSpawn:
		_, err = client.RequestSpawn(cmd.Kind, parent)
	case network.CmdMove:
		_, err = client.RequestReparent(cmd.Object, parent)
	case network.CmdDestroy:
		_, err = client.RequestDestroy(cmd.Object)
	case network.CmdStatus:
		printStatus(client)
	case network.CmdHelp:
		fmt.Println(network.Usage)
	}
	if err != nil {
		log.Warn().Err(err).Msg("command failed")
	}
}

func watch(client *network.Client) {
	view := client.View()
	match := view.Match()

	client.OnTryingToJoin(func() { log.Info().Msg("trying to join") })
	client.OnFailedToJoin(func(f network.FailedToJoin) {
		log.Error().Str("reason", f.Reason).Msg("failed to join")
	})
	client.OnJoined(func(msg messages.JoinAccepted) {
		log.Info().
			Str("server", msg.ServerName).
			Uint64("participant", uint64(msg.Participant)).
			Uint("holder", uint(msg.HolderRef)).
			Msg("joined, type 'ready' when you are")
	})
	client.OnSpawnResult(func(r messages.SpawnResult) {
		if r.Error != "" {
			log.Warn().Str("error", r.Error).Msg("spawn refused")
			return
		}
		log.Info().Uint("ref", uint(r.Object)).Msg("spawned")
	})
	client.OnReparentResult(func(r messages.ReparentResult) {
		if r.Error != "" {
			log.Warn().Str("error", r.Error).Msg("move refused")
		}
	})
	client.OnDestroyResult(func(r messages.DestroyResult) {
		if r.Error != "" {
			log.Warn().Str("error", r.Error).Msg("destroy refused")
		}
	})

	match.OnPhaseChanged(func(c session.PhaseChange) {
		log.Info().Str("phase", c.Current.String()).Msg("phase changed")
	})
	match.OnCountdownChanged(func(c replicated.Change[float64]) {
		if match.IsCountdownActive() && c.Current >= 0 && math.Ceil(c.Current) < math.Ceil(c.Previous) {
			log.Info().Int("seconds", int(math.Ceil(c.Current))).Msg("starting in")
		}
	})
	match.OnLocalReadyChanged(func(bool) { log.Info().Msg("you are ready") })
	match.OnPaused(func() { log.Info().Msg("paused") })
	match.OnUnpaused(func() { log.Info().Msg("unpaused") })

	view.OnObjectSpawned(func(o *network.ObjectView) {
		log.Info().
			Uint("ref", uint(o.Ref())).
			Str("kind", kindName(view.Catalog(), o.Kind())).
			Uint("parent", uint(o.Parent())).
			Msg("object appeared")
	})
	view.OnObjectReparented(func(r network.Reparented) {
		log.Info().Uint("ref", uint(r.Object)).Uint("from", uint(r.Previous)).Uint("to", uint(r.Current)).Msg("object moved")
	})
	view.OnObjectCleared(func(e messages.ClearParentEvent) {
		log.Info().Uint("ref", uint(e.Object)).Uint("parent", uint(e.Parent)).Msg("object cleared")
	})
}

func printStatus(client *network.Client) {
	view := client.View()
	match := view.Match()

	fmt.Printf("state=%s phase=%s ready=%t paused=%t\n",
		client.State(), match.Phase(), match.IsLocalPlayerReady(), match.IsPaused())
	switch {
	case match.IsCountdownActive():
		fmt.Printf("countdown %.1fs\n", match.CountdownRemaining())
	case match.IsPlaying():
		fmt.Printf("time left %.1fs (%.0f%%)\n", match.PlayTimeRemaining(), match.PlayTimeElapsedFraction()*100)
	}
	for _, p := range view.Players() {
		fmt.Printf("player %d %q holder=%d\n", p.Player.Participant, p.Player.Name, p.Ref())
	}
	fmt.Printf("counters %v (yours: %d)\n", view.Counters(), client.HolderRef())
	for _, o := range view.Objects() {
		fmt.Printf("object %d %s on %d\n", o.Ref(), kindName(view.Catalog(), o.Kind()), o.Parent())
	}
}

func kindName(cat *catalog.Catalog, kind int) string {
	k, err := cat.Kind(kind)
	if err != nil {
		return fmt.Sprintf("kind#%d", kind)
	}
	return k.Name
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(os.DirFS("."), path)
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
