package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, uint(netconfig.DefaultPort), cfg.Port)
	assert.Equal(t, netconfig.DefaultTickRate, cfg.TickRate)
	assert.Equal(t, netconfig.MaxPlayers, cfg.Capacity)
	assert.Equal(t, netconfig.DefaultCounters, cfg.Counters)
	assert.Equal(t, "Kitchen Server", cfg.Name)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
}

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KITCHEN_PORT", "9000")
	t.Setenv("KITCHEN_NAME", "from env")
	t.Setenv("KITCHEN_PLAY_SECONDS", "45")

	cfg, err := LoadConfig([]string{"-name", "from flag", "-capacity", "2"})
	require.NoError(t, err)

	assert.Equal(t, uint(9000), cfg.Port)
	assert.Equal(t, "from flag", cfg.Name)
	assert.Equal(t, 2, cfg.Capacity)
	assert.Equal(t, 45.0, cfg.SessionConfig().Match.PlayTimerMax)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KITCHEN_COUNTERS=6\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KITCHEN_COUNTERS") })

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Counters)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"no tick rate", func(c *Config) { c.TickRate = 0 }},
		{"no capacity", func(c *Config) { c.Capacity = 0 }},
		{"negative counters", func(c *Config) { c.Counters = -1 }},
		{"no play time", func(c *Config) { c.PlaySeconds = 0 }},
		{"master without address", func(c *Config) { c.MasterURL = "http://master" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := defaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadCatalog(t *testing.T) {
	cfg := defaultConfig()
	cat, err := cfg.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 11, cat.Len())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kinds:\n  - name: soup\n    prefab: Soup\n"), 0o600))
	cfg.Catalog = path
	cat, err = cfg.LoadCatalog()
	require.NoError(t, err)
	idx, ok := cat.IndexOf("soup")
	assert.True(t, ok)
	assert.Zero(t, idx)
}
