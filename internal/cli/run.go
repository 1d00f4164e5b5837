package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/datacollector/internal/cache"
	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/collector"
	"github.com/roach88/datacollector/internal/config"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/keychain"
	"github.com/roach88/datacollector/internal/ledger"
	"github.com/roach88/datacollector/internal/metrics"
	"github.com/roach88/datacollector/internal/record"
	"github.com/roach88/datacollector/internal/repo"
	"github.com/roach88/datacollector/internal/store"
)

// Key labels under <state-dir>/keys.
const (
	dataKeyLabel    = "data"
	commandKeyLabel = "command"
)

func runCollector(cmd *cobra.Command, opts *CollectOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts, args)
	if err != nil {
		return err
	}
	names, err := cfg.Names()
	if err != nil {
		return WrapExitError(ExitUsage, "invalid names", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)

	dataKey, created, err := keychain.LoadOrCreate(cfg.KeyDir(), dataKeyLabel, names.Identity)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load data signing key", err)
	}
	if created {
		logger.Info("generated data signing key", "dir", cfg.KeyDir())
	}
	commandKey, created, err := keychain.LoadOrCreate(cfg.KeyDir(), commandKeyLabel, names.Identity)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load command signing key", err)
	}
	if created {
		logger.Info("generated command signing key", "dir", cfg.KeyDir())
	}

	logger.Info("opening journal", "path", cfg.JournalPath())
	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath()), 0o755); err != nil {
		return WrapExitError(ExitFailure, "failed to create journal directory", err)
	}
	st, err := store.Open(cfg.JournalPath())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open journal", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter, err := ledger.OpenCounter(ctx, sequenceLedger(cfg, st))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open sequence ledger", err)
	}
	logger.Info("sequence ledger ready", "ledger", cfg.Ledger, "next", counter.Current())

	clk := clock.Real()
	signer := keychain.NewCommandSigner(commandKey, clk)

	stream, err := face.Dial(cfg.Forwarder, clk)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to connect to forwarder", err)
	}
	defer stream.Close()

	builder := record.NewBuilder(record.Options{
		Identity:    names.Identity,
		Destination: names.Destination,
		Trim:        cfg.Record.Trim.Policy(),
		Freshness:   cfg.Record.Freshness,
	}, counter, dataKey, clk)

	initiator := repo.NewInitiator(stream, signer, repo.Options{
		Prefix:   names.CommandPrefix,
		Lifetime: cfg.Commit.Lifetime,
		Retry:    repo.RetryPolicy{MaxAttempts: cfg.Commit.MaxAttempts},
	})

	m := metrics.New()
	m.SetNextSequence(counter.Current())

	col := collector.New(collector.Options{
		Device:        cfg.Device,
		Identity:      names.Identity,
		Reading:       names.Reading,
		Interval:      cfg.Schedule.Interval,
		FetchLifetime: cfg.Schedule.FetchLifetime,
	}, stream, builder, cache.New(cfg.Cache.Capacity), initiator, clk,
		collector.WithJournal(st),
		collector.WithMetrics(m),
		collector.WithLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return stream.Run(gctx) })
	g.Go(func() error { return col.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr, m, logger) })
	}

	logger.Info("collector started",
		"record_prefix", builder.Prefix(),
		"forwarder", cfg.Forwarder,
		"command_prefix", names.CommandPrefix,
	)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, collector.ErrRegistration) {
			return WrapExitError(ExitFailure, "collector did not start", err)
		}
		return WrapExitError(ExitFailure, "collector stopped", err)
	}

	logger.Info("collector stopped")
	return nil
}

// sequenceSlot is a ledger the status command can also read without
// initialising it.
type sequenceSlot interface {
	ledger.Ledger
	ledger.Peeker
}

// sequenceLedger returns the configured sequence slot.
func sequenceLedger(cfg *config.Config, st *store.Store) sequenceSlot {
	if cfg.Ledger == config.LedgerSQLite {
		return st.Ledger(cfg.Device)
	}
	return ledger.NewFileLedger(cfg.SeqDir(), cfg.Device)
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
		return ctx.Err()
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
