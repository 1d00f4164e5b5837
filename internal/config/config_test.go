package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datacollector/internal/record"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Device = "sensor7"
	cfg.LocationPrefix = "/org/bld1/room5"
	cfg.Repo = "/repoA"
	return cfg
}

func TestDefault_ReferenceValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Schedule.Interval)
	assert.Equal(t, time.Second, cfg.Record.Freshness)
	assert.Equal(t, 4*time.Second, cfg.Commit.Lifetime)
	assert.Equal(t, 1, cfg.Commit.MaxAttempts)
	assert.Equal(t, LedgerFile, cfg.Ledger)
	assert.Equal(t, "unix:///run/nfd.sock", cfg.Forwarder)
	assert.Equal(t, record.DefaultTrimPolicy, cfg.Record.Trim.Policy())
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device: sensor7
location_prefix: /org/bld1/room5
repo: repoA
ledger: sqlite
schedule:
  interval: 30s
record:
  trim:
    offset: 0
commit:
  prefix: /localhost/repoA
  max_attempts: 3
cache:
  capacity: 100
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Schedule.Interval)
	assert.Equal(t, 4*time.Second, cfg.Schedule.FetchLifetime, "unset values keep defaults")
	assert.Equal(t, LedgerSQLite, cfg.Ledger)
	assert.Equal(t, 3, cfg.Commit.MaxAttempts)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, record.TrimPolicy{Delimiter: '~', Offset: 0}, cfg.Record.Trim.Policy())

	names, err := cfg.Names()
	require.NoError(t, err)
	assert.Equal(t, "/org/bld1/room5/sensor7", names.Identity.String())
	assert.Equal(t, "/repoA", names.Destination.String())
	assert.Equal(t, "/localhost/repoA", names.CommandPrefix.String())
	assert.Equal(t, "/sensor7", names.Reading.String())
}

func TestLoadFile_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule:\n  interval: soon\n"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestNames_Defaults(t *testing.T) {
	names, err := validConfig().Names()
	require.NoError(t, err)
	assert.Equal(t, "/repoA", names.CommandPrefix.String())
	assert.Equal(t, "/sensor7", names.Reading.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing device", func(c *Config) { c.Device = "" }, "device name"},
		{"device with slash", func(c *Config) { c.Device = "a/b" }, "device name"},
		{"device named like a subcommand", func(c *Config) { c.Device = "status" }, "collides with the status subcommand"},
		{"empty location", func(c *Config) { c.LocationPrefix = "/" }, "location prefix"},
		{"missing repo", func(c *Config) { c.Repo = "" }, "repo name"},
		{"zero interval", func(c *Config) { c.Schedule.Interval = 0 }, "schedule.interval"},
		{"long delimiter", func(c *Config) { c.Record.Trim.Delimiter = "~~" }, "record.trim.delimiter"},
		{"negative offset", func(c *Config) { c.Record.Trim.Offset = -1 }, "record.trim.offset"},
		{"zero attempts", func(c *Config) { c.Commit.MaxAttempts = 0 }, "commit.max_attempts"},
		{"unknown ledger", func(c *Config) { c.Ledger = "etcd" }, "ledger must be"},
		{"unknown level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"negative capacity", func(c *Config) { c.Cache.Capacity = -1 }, "cache.capacity"},
	}

	require.NoError(t, validConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_DisabledTrimIgnoresDelimiter(t *testing.T) {
	cfg := validConfig()
	cfg.Record.Trim = TrimConfig{Disabled: true}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Record.Trim.Policy().Disabled)
}

func TestPaths(t *testing.T) {
	cfg := validConfig()
	cfg.StateDir = "/srv/dc"

	assert.Equal(t, "/srv/dc/journal.db", cfg.JournalPath())
	assert.Equal(t, "/srv/dc/seq", cfg.SeqDir())
	assert.Equal(t, "/srv/dc/keys", cfg.KeyDir())

	cfg.Journal = "/tmp/j.db"
	assert.Equal(t, "/tmp/j.db", cfg.JournalPath())
}
