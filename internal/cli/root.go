package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datacollector/internal/config"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	ConfigPath string
	StateDir   string
	Journal    string
	Verbose    bool
}

// CollectOptions holds the collector's own flags.
type CollectOptions struct {
	*RootOptions
	Forwarder   string
	Interval    time.Duration
	Ledger      string
	MetricsAddr string
}

// NewRootCommand creates the datacollector command. The root command runs
// the collector; status inspects its persisted state.
func NewRootCommand() *cobra.Command {
	rootOpts := &RootOptions{}
	opts := &CollectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "datacollector <deviceName> <locationPrefix> <repoName>",
		Short: "Collect sensor readings into a repo",
		Long: `Periodically fetch a device reading, stamp it into a sequenced, signed
record, cache it for pull requests and ask the repo to insert it.

Record names are <locationPrefix>/<deviceName><repoName>/<seq>. A device
cannot be named "status".

Example:
  datacollector sensor7 /org/bld1/room5 /repoA
  datacollector sensor7 /org/bld1/room5 /repoA --forwarder tcp://127.0.0.1:6363 --interval 30s`,
		Args:          positionalArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&rootOpts.ConfigPath, "config", "", "YAML configuration file")
	pf.StringVar(&rootOpts.StateDir, "state-dir", "", "directory for the sequence slot, keys and journal")
	pf.StringVar(&rootOpts.Journal, "db", "", "journal database path (default <state-dir>/journal.db)")
	pf.BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "debug logging")

	f := cmd.Flags()
	f.StringVar(&opts.Forwarder, "forwarder", "", "forwarder address, unix:///path or tcp://host:port")
	f.DurationVar(&opts.Interval, "interval", 0, "delay between collection cycles")
	f.StringVar(&opts.Ledger, "ledger", "", "sequence slot backend (file|sqlite)")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(c.UsageString())
		return WrapExitError(ExitUsage, "invalid flags", err)
	})

	cmd.AddCommand(NewStatusCommand(rootOpts))

	return cmd
}

// positionalArgs rejects anything but the three names, printing usage so
// the operator sees the expected form.
func positionalArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 3 {
		cmd.PrintErrln(cmd.UsageString())
		return NewExitError(ExitUsage,
			fmt.Sprintf("expected <deviceName> <locationPrefix> <repoName>, got %d argument(s)", len(args)))
	}
	cfg := config.Default()
	cfg.Device, cfg.LocationPrefix, cfg.Repo = args[0], args[1], args[2]
	if _, err := cfg.Names(); err != nil {
		cmd.PrintErrln(cmd.UsageString())
		return WrapExitError(ExitUsage, "invalid arguments", err)
	}
	return nil
}

// loadConfig applies the config file, then the positionals, then any
// flags the user set.
func loadConfig(cmd *cobra.Command, opts *CollectOptions, args []string) (*config.Config, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "failed to load configuration", err)
	}
	cfg.Device, cfg.LocationPrefix, cfg.Repo = args[0], args[1], args[2]

	applyRootFlags(cmd, opts.RootOptions, cfg)
	flags := cmd.Flags()
	if flags.Changed("forwarder") {
		cfg.Forwarder = opts.Forwarder
	}
	if flags.Changed("interval") {
		cfg.Schedule.Interval = opts.Interval
	}
	if flags.Changed("ledger") {
		cfg.Ledger = config.LedgerKind(opts.Ledger)
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitUsage, "invalid configuration", err)
	}
	return cfg, nil
}

func applyRootFlags(cmd *cobra.Command, opts *RootOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("state-dir") {
		cfg.StateDir = opts.StateDir
	}
	if flags.Changed("db") {
		cfg.Journal = opts.Journal
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
}
