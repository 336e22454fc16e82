package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "Server TTL before expiry")
	pretty := flag.Bool("pretty", false, "Human readable console logs")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("component", "master").Logger()

	reg := NewRegistry(*ttl, clockwork.NewRealClock())
	reg.Start(30 * time.Second)
	defer reg.Stop()

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Dur("ttl", *ttl).Msg("starting")
	if err := http.ListenAndServe(addr, Routes(reg)); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
