package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datacollector/internal/config"
	"github.com/roach88/datacollector/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Format string
	Ledger string
	Limit  int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <deviceName>",
		Short: "Show a device's sequence state and recent publications",
		Long: `Print the next sequence number persisted for a device and the most
recent records the collector journalled, with the repo's answer to each.

Nothing is created: a device that never ran reports an uninitialised slot.

Example:
  datacollector status sensor7 --state-dir /var/lib/datacollector
  datacollector status sensor7 --format json --limit 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "sequence slot backend (file|sqlite)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "number of publications to show")

	return cmd
}

// DeviceStatus is the status command's result.
type DeviceStatus struct {
	Device       string              `json:"device"`
	Initialised  bool                `json:"initialised"`
	NextSequence uint32              `json:"next_sequence"`
	Publications []PublicationStatus `json:"publications"`
}

// PublicationStatus is one journalled record.
type PublicationStatus struct {
	Name     string    `json:"name"`
	Seq      uint32    `json:"seq"`
	Cycle    string    `json:"cycle"`
	Digest   string    `json:"digest"`
	BuiltAt  time.Time `json:"built_at"`
	Outcome  string    `json:"outcome,omitempty"`
	Status   uint64    `json:"status_code,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
}

func (s DeviceStatus) String() string {
	var b strings.Builder
	if s.Initialised {
		fmt.Fprintf(&b, "device %s: next sequence %d\n", s.Device, s.NextSequence)
	} else {
		fmt.Fprintf(&b, "device %s: sequence slot not initialised\n", s.Device)
	}
	if len(s.Publications) == 0 {
		b.WriteString("no publications journalled")
		return b.String()
	}
	for _, p := range s.Publications {
		outcome := p.Outcome
		if outcome == "" {
			outcome = "pending"
		}
		fmt.Fprintf(&b, "%s  %s  %s", p.BuiltAt.UTC().Format(time.RFC3339), p.Name, outcome)
		if p.Status != 0 {
			fmt.Fprintf(&b, " (%d)", p.Status)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func runStatus(cmd *cobra.Command, opts *StatusOptions, device string) error {
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitUsage, "failed to load configuration", err)
	}
	applyRootFlags(cmd, opts.RootOptions, cfg)
	if cmd.Flags().Changed("ledger") {
		cfg.Ledger = config.LedgerKind(opts.Ledger)
	}
	cfg.Device = device

	status := DeviceStatus{Device: device, Publications: []PublicationStatus{}}

	// Opening the journal would create it; a missing one means nothing ran.
	var st *store.Store
	if _, err := os.Stat(cfg.JournalPath()); err == nil {
		if st, err = store.Open(cfg.JournalPath()); err != nil {
			return WrapExitError(ExitFailure, "failed to open journal", err)
		}
		defer st.Close()
	} else if !errors.Is(err, os.ErrNotExist) {
		return WrapExitError(ExitFailure, "failed to stat journal", err)
	}

	ctx := cmd.Context()
	if st != nil || cfg.Ledger != config.LedgerSQLite {
		v, ok, err := sequenceLedger(cfg, st).Peek(ctx)
		if err != nil {
			_ = out.Error("ledger", err.Error())
			return WrapExitError(ExitFailure, "failed to read sequence slot", err)
		}
		status.Initialised, status.NextSequence = ok, v
	}

	if st != nil {
		pubs, err := st.RecentPublications(ctx, device, opts.Limit)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read journal", err)
		}
		for _, p := range pubs {
			ps := PublicationStatus{
				Name:    p.Record.Name,
				Seq:     p.Record.Seq,
				Cycle:   p.Record.Cycle,
				Digest:  p.Record.Digest,
				BuiltAt: p.Record.BuiltAt,
			}
			if p.Commit != nil {
				ps.Outcome = p.Commit.Outcome
				ps.Status = p.Commit.StatusCode
				ps.Attempts = p.Commit.Attempts
			}
			status.Publications = append(status.Publications, ps)
		}
	}

	return out.Success(status)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
