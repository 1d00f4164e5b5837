// Package config loads collector configuration.
//
// Configuration comes from built-in defaults, then an optional YAML file,
// then command-line flags, in that order. The three positional values
// (device name, location prefix, repo name) are required; everything else
// has a default that reproduces the reference deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/ndn"
	"github.com/roach88/datacollector/internal/record"
)

// LedgerKind selects where the sequence slot lives.
type LedgerKind string

const (
	// LedgerFile keeps the slot in <state_dir>/seq/<device>.seq.
	LedgerFile LedgerKind = "file"
	// LedgerSQLite keeps the slot in the journal database.
	LedgerSQLite LedgerKind = "sqlite"
)

// Config is the collector configuration.
type Config struct {
	// Device is the device name, one name component.
	Device string `yaml:"device"`

	// LocationPrefix is the identity namespace root, e.g. /org/bld1/room5.
	LocationPrefix string `yaml:"location_prefix"`

	// Repo is the storage service's name, e.g. /repoA. It is appended to
	// every record name.
	Repo string `yaml:"repo"`

	// ReadingName is fetched on every tick.
	// Default: /<device>
	ReadingName string `yaml:"reading_name"`

	// Forwarder is the local forwarder address.
	// Default: unix:///run/nfd.sock
	Forwarder string `yaml:"forwarder"`

	// StateDir holds the sequence slot, keys and journal.
	// Default: /var/lib/datacollector
	StateDir string `yaml:"state_dir"`

	// Ledger is "file" or "sqlite".
	// Default: file
	Ledger LedgerKind `yaml:"ledger"`

	// Journal is the SQLite journal path.
	// Default: <state_dir>/journal.db
	Journal string `yaml:"journal"`

	// MetricsAddr serves /metrics when set, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is debug, info, warn or error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	Schedule ScheduleConfig `yaml:"schedule"`
	Record   RecordConfig   `yaml:"record"`
	Commit   CommitConfig   `yaml:"commit"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ScheduleConfig configures collection timing.
type ScheduleConfig struct {
	// Interval between the end of one fetch and the next tick.
	// Default: 10s
	Interval time.Duration `yaml:"interval"`

	// FetchLifetime bounds the reading request.
	// Default: 4s
	FetchLifetime time.Duration `yaml:"fetch_lifetime"`
}

// RecordConfig configures record construction.
type RecordConfig struct {
	// Freshness is the record freshness period.
	// Default: 1s
	Freshness time.Duration `yaml:"freshness"`

	Trim TrimConfig `yaml:"trim"`
}

// TrimConfig configures payload truncation.
type TrimConfig struct {
	// Disabled passes payloads through untouched.
	Disabled bool `yaml:"disabled"`

	// Delimiter is a single byte ending the useful payload.
	// Default: "~"
	Delimiter string `yaml:"delimiter"`

	// Offset is how many bytes before the delimiter to cut.
	// Default: 1
	Offset int `yaml:"offset"`
}

// Policy returns the record trim policy. Call after Validate.
func (t TrimConfig) Policy() record.TrimPolicy {
	if t.Disabled {
		return record.TrimPolicy{Disabled: true}
	}
	return record.TrimPolicy{Delimiter: t.Delimiter[0], Offset: t.Offset}
}

// CommitConfig configures repo insert commands.
type CommitConfig struct {
	// Prefix is the repo's command prefix.
	// Default: the repo name, e.g. /repoA
	Prefix string `yaml:"prefix"`

	// Lifetime bounds each command exchange.
	// Default: 4s
	Lifetime time.Duration `yaml:"lifetime"`

	// MaxAttempts is the total commands sent per record.
	// Default: 1
	MaxAttempts int `yaml:"max_attempts"`
}

// CacheConfig configures the local record cache.
type CacheConfig struct {
	// Capacity bounds the cache; 0 keeps every record.
	Capacity int `yaml:"capacity"`
}

// Default returns the default configuration. The positional values are
// left empty.
func Default() *Config {
	return &Config{
		Forwarder: face.DefaultForwarder,
		StateDir:  "/var/lib/datacollector",
		Ledger:    LedgerFile,
		LogLevel:  "info",
		Schedule: ScheduleConfig{
			Interval:      10 * time.Second,
			FetchLifetime: 4 * time.Second,
		},
		Record: RecordConfig{
			Freshness: time.Second,
			Trim: TrimConfig{
				Delimiter: "~",
				Offset:    1,
			},
		},
		Commit: CommitConfig{
			Lifetime:    4 * time.Second,
			MaxAttempts: 1,
		},
	}
}

// LoadFile loads configuration from path over the defaults. An empty path
// returns the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// JournalPath returns the journal database path.
func (c *Config) JournalPath() string {
	if c.Journal != "" {
		return c.Journal
	}
	return filepath.Join(c.StateDir, "journal.db")
}

// SeqDir returns the directory of file ledger slots.
func (c *Config) SeqDir() string {
	return filepath.Join(c.StateDir, "seq")
}

// KeyDir returns the directory of signing keys.
func (c *Config) KeyDir() string {
	return filepath.Join(c.StateDir, "keys")
}

// Names are the parsed names the collector works with.
type Names struct {
	// Identity is location prefix plus device name; pull requests arrive
	// under it.
	Identity ndn.Name
	// Destination is the repo name appended to every record name.
	Destination ndn.Name
	// CommandPrefix is where insert commands are sent.
	CommandPrefix ndn.Name
	// Reading is fetched on every tick.
	Reading ndn.Name
}

// reservedDevice holds subcommand names, which the command line would
// dispatch instead of treating as a device name.
var reservedDevice = map[string]bool{"status": true}

// Names parses the configured names.
func (c *Config) Names() (Names, error) {
	var n Names
	if c.Device == "" || strings.Contains(c.Device, "/") {
		return n, fmt.Errorf("device name %q must be a single non-empty name component", c.Device)
	}
	if reservedDevice[c.Device] {
		return n, fmt.Errorf("device name %q collides with the %s subcommand", c.Device, c.Device)
	}
	location, err := ndn.ParseName(c.LocationPrefix)
	if err != nil {
		return n, fmt.Errorf("location prefix: %w", err)
	}
	if len(location) == 0 {
		return n, errors.New("location prefix must not be empty")
	}
	n.Identity = location.AppendString(c.Device)

	if n.Destination, err = ndn.ParseName(c.Repo); err != nil {
		return n, fmt.Errorf("repo name: %w", err)
	}
	if len(n.Destination) == 0 {
		return n, errors.New("repo name must not be empty")
	}

	n.CommandPrefix = n.Destination
	if c.Commit.Prefix != "" {
		if n.CommandPrefix, err = ndn.ParseName(c.Commit.Prefix); err != nil {
			return n, fmt.Errorf("commit prefix: %w", err)
		}
	}

	n.Reading = ndn.Name{}.AppendString(c.Device)
	if c.ReadingName != "" {
		if n.Reading, err = ndn.ParseName(c.ReadingName); err != nil {
			return n, fmt.Errorf("reading name: %w", err)
		}
	}
	return n, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Names(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, fmt.Errorf("schedule.interval must be positive, got %s", c.Schedule.Interval))
	}
	if c.Schedule.FetchLifetime <= 0 {
		errs = append(errs, fmt.Errorf("schedule.fetch_lifetime must be positive, got %s", c.Schedule.FetchLifetime))
	}
	if c.Record.Freshness <= 0 {
		errs = append(errs, fmt.Errorf("record.freshness must be positive, got %s", c.Record.Freshness))
	}
	if !c.Record.Trim.Disabled {
		if len(c.Record.Trim.Delimiter) != 1 {
			errs = append(errs, fmt.Errorf("record.trim.delimiter must be one byte, got %q", c.Record.Trim.Delimiter))
		}
		if c.Record.Trim.Offset < 0 {
			errs = append(errs, fmt.Errorf("record.trim.offset must not be negative, got %d", c.Record.Trim.Offset))
		}
	}
	if c.Commit.Lifetime <= 0 {
		errs = append(errs, fmt.Errorf("commit.lifetime must be positive, got %s", c.Commit.Lifetime))
	}
	if c.Commit.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("commit.max_attempts must be at least 1, got %d", c.Commit.MaxAttempts))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity))
	}
	switch c.Ledger {
	case LedgerFile, LedgerSQLite:
	default:
		errs = append(errs, fmt.Errorf("ledger must be %q or %q, got %q", LedgerFile, LedgerSQLite, c.Ledger))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir must not be empty"))
	}

	return errors.Join(errs...)
}
