package core

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the dedicated server configuration. Values come from a .env
// file, then the environment, then command line flags.
type Config struct {
	Port      uint   `env:"KITCHEN_PORT"`
	TickRate  int    `env:"KITCHEN_TICK_RATE"`
	Name      string `env:"KITCHEN_NAME"       envDefault:"Kitchen Server"`
	Version   string `env:"KITCHEN_VERSION"`
	Capacity  int    `env:"KITCHEN_CAPACITY"`
	Counters  int    `env:"KITCHEN_COUNTERS"`
	Catalog   string `env:"KITCHEN_CATALOG"`
	LogLevel  string `env:"KITCHEN_LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"KITCHEN_LOG_PRETTY"`

	CountdownSeconds float64 `env:"KITCHEN_COUNTDOWN_SECONDS"`
	PlaySeconds      float64 `env:"KITCHEN_PLAY_SECONDS"`

	MasterURL         string        `env:"KITCHEN_MASTER_URL"`
	PublicAddress     string        `env:"KITCHEN_PUBLIC_ADDRESS"`
	Region            string        `env:"KITCHEN_REGION"`
	HeartbeatInterval time.Duration `env:"KITCHEN_HEARTBEAT_INTERVAL" envDefault:"30s"`

	NATSURL string `env:"KITCHEN_NATS_URL"`
}

func defaultConfig() Config {
	return Config{
		Port:             netconfig.DefaultPort,
		TickRate:         netconfig.DefaultTickRate,
		Capacity:         netconfig.MaxPlayers,
		Counters:         netconfig.DefaultCounters,
		CountdownSeconds: netconfig.CountdownDuration,
		PlaySeconds:      netconfig.PlayTimerMax,
	}
}

// LoadConfig reads .env (if present), the environment, then args.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.UintVar(&cfg.Port, "port", cfg.Port, "Server port")
	fset.IntVar(&cfg.TickRate, "tickrate", cfg.TickRate, "Server tick rate (updates per second)")
	fset.StringVar(&cfg.Name, "name", cfg.Name, "Server display name")
	fset.StringVar(&cfg.Version, "version", cfg.Version, "Required client version (empty = accept any)")
	fset.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Maximum participants")
	fset.IntVar(&cfg.Counters, "counters", cfg.Counters, "Number of counters in the kitchen")
	fset.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "Path to a YAML object catalog (empty = built-in)")
	fset.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "Log level")
	fset.BoolVar(&cfg.LogPretty, "pretty", cfg.LogPretty, "Human readable console logs")
	fset.Float64Var(&cfg.CountdownSeconds, "countdown", cfg.CountdownSeconds, "Countdown length in seconds")
	fset.Float64Var(&cfg.PlaySeconds, "playtime", cfg.PlaySeconds, "Round length in seconds")
	fset.StringVar(&cfg.MasterURL, "master", cfg.MasterURL, "Master server URL (empty = don't register)")
	fset.StringVar(&cfg.PublicAddress, "address", cfg.PublicAddress, "Address advertised to the master server")
	fset.StringVar(&cfg.Region, "region", cfg.Region, "Region advertised to the master server")
	fset.StringVar(&cfg.NATSURL, "nats", cfg.NATSURL, "NATS URL for the match event feed (empty = disabled)")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port == 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalidConfig, c.Port)
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick rate must be positive", ErrInvalidConfig)
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	case c.Counters < 0:
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidConfig)
	case c.CountdownSeconds < 0 || c.PlaySeconds <= 0:
		return fmt.Errorf("%w: match timers", ErrInvalidConfig)
	case c.MasterURL != "" && c.PublicAddress == "":
		return fmt.Errorf("%w: -address is required with -master", ErrInvalidConfig)
	}
	return nil
}

// SessionConfig maps the server config onto a session. The catalog is left
// for the caller to fill.
func (c *Config) SessionConfig() SessionConfig {
	return SessionConfig{
		Name:            c.Name,
		TickRate:        c.TickRate,
		Capacity:        c.Capacity,
		RequiredVersion: c.Version,
		Counters:        c.Counters,
		Match: session.Config{
			CountdownDuration: c.CountdownSeconds,
			PlayTimerMax:      c.PlaySeconds,
		},
	}
}

// LoadCatalog returns the configured catalog, or the built-in one.
func (c *Config) LoadCatalog() (*catalog.Catalog, error) {
	if c.Catalog == "" {
		return catalog.Default(), nil
	}
	f, err := os.Open(c.Catalog)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Load(f)
}
