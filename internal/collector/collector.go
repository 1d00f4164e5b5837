package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/datacollector/internal/cache"
	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/metrics"
	"github.com/roach88/datacollector/internal/ndn"
	"github.com/roach88/datacollector/internal/record"
	"github.com/roach88/datacollector/internal/repo"
	"github.com/roach88/datacollector/internal/store"
)

// Reference timing.
const (
	DefaultInterval      = 10 * time.Second
	DefaultFetchLifetime = 4 * time.Second
)

// Builder turns a raw reading into a signed record (see record.Builder).
type Builder interface {
	Build(ctx context.Context, raw []byte) (*ndn.Data, error)
}

// Announcer asks the repo to insert a record (see repo.Initiator).
type Announcer interface {
	Announce(record ndn.Name, done func(repo.Outcome))
}

// Journal records what the collector published (see store.Store).
type Journal interface {
	WriteRecord(ctx context.Context, device, cycle string, d *ndn.Data, builtAt time.Time) error
	WriteCommit(ctx context.Context, c store.CommitEntry) error
}

// Registration is the state of the identity prefix registration.
type Registration int32

const (
	Unregistered Registration = iota
	Registering
	Active
)

func (r Registration) String() string {
	switch r {
	case Unregistered:
		return "unregistered"
	case Registering:
		return "registering"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("registration(%d)", int32(r))
	}
}

// State is the collection cycle state.
type State int32

const (
	Idle State = iota
	AwaitingReading
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReading:
		return "awaiting-reading"
	case Committing:
		return "committing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// CycleResult says how a collection cycle ended.
type CycleResult string

const (
	ResultRecord       CycleResult = "record"
	ResultFetchNack    CycleResult = "fetch_nack"
	ResultFetchTimeout CycleResult = "fetch_timeout"
	ResultFetchFailed  CycleResult = "fetch_failed"
	ResultBuildFailed  CycleResult = "build_failed"
)

// CycleReport summarises one finished cycle.
type CycleReport struct {
	Cycle  string
	Result CycleResult
	// Record is the built record when Result is ResultRecord.
	Record *ndn.Data
	// Err is a *CycleError for every other result.
	Err error
}

// Options configure a Collector.
type Options struct {
	// Device is the device name used in logs and the journal.
	Device string
	// Identity is registered for pull requests.
	Identity ndn.Name
	// Reading is fetched on every tick.
	Reading ndn.Name
	// Interval is the delay between the end of one fetch and the next tick.
	Interval time.Duration
	// FetchLifetime bounds the reading request.
	FetchLifetime time.Duration
}

// Option configures optional collaborators.
type Option func(*Collector)

// WithJournal journals built records and announce outcomes.
func WithJournal(j Journal) Option {
	return func(c *Collector) { c.journal = j }
}

// WithMetrics reports cycle, commit and pull counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithTokens replaces the UUIDv7 cycle token generator.
func WithTokens(g CycleTokenGenerator) Option {
	return func(c *Collector) { c.tokens = g }
}

// WithObserver delivers a CycleReport at the end of every cycle, from the
// Run goroutine. The observer must not block.
func WithObserver(fn func(CycleReport)) Option {
	return func(c *Collector) { c.observer = fn }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// Collector is the single-writer collection loop for one device.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine, once
//   - State(), Registration(): safe from any goroutine
type Collector struct {
	opts      Options
	face      face.Face
	builder   Builder
	cache     *cache.Store
	announcer Announcer
	clock     clock.Clock
	queue     *eventQueue

	journal  Journal
	metrics  *metrics.Metrics
	tokens   CycleTokenGenerator
	logger   *slog.Logger
	observer func(CycleReport)

	registration atomic.Int32
	state        atomic.Int32

	// Owned by the Run goroutine.
	cycle      string
	cycleStart time.Time
	timer      clock.Timer
}

// New returns a Collector. Zero Interval and FetchLifetime take the
// reference defaults.
func New(
	opts Options,
	f face.Face,
	b Builder,
	c *cache.Store,
	a Announcer,
	clk clock.Clock,
	options ...Option,
) *Collector {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FetchLifetime <= 0 {
		opts.FetchLifetime = DefaultFetchLifetime
	}
	col := &Collector{
		opts:      opts,
		face:      f,
		builder:   b,
		cache:     c,
		announcer: a,
		clock:     clk,
		queue:     newEventQueue(),
		tokens:    UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(col)
	}
	col.logger = col.logger.With("component", "collector", "device", opts.Device)
	return col
}

// Registration returns the registration state.
func (c *Collector) Registration() Registration {
	return Registration(c.registration.Load())
}

// State returns the cycle state.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// Run registers the identity prefix and runs the collection loop until
// ctx is cancelled or registration fails. Cancellation returns ctx.Err();
// in-flight exchanges are abandoned, not drained.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector starting",
		"identity", c.opts.Identity,
		"reading", c.opts.Reading,
		"interval", c.opts.Interval,
	)
	defer c.shutdown()

	c.registration.Store(int32(Registering))
	c.face.Register(c.opts.Identity,
		func(i *ndn.Interest) {
			c.queue.Enqueue(Event{Type: EventTypePull, Interest: i})
		},
		func(err error) {
			c.queue.Enqueue(Event{Type: EventTypeRegistered, Err: err})
		},
	)

	for {
		event, ok := c.queue.TryDequeue()
		if ok {
			if err := c.processEvent(ctx, event); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("collector stopping: context cancelled")
			return ctx.Err()
		case <-c.queue.Wait():
		}
	}
}

func (c *Collector) shutdown() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.queue.Close()
}

// processEvent routes an event to its handler. Only errors that end the
// loop are returned.
func (c *Collector) processEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTypeRegistered:
		return c.onRegistered(ev.Err)
	case EventTypeTick:
		c.onTick()
	case EventTypeReading:
		c.onReading(ctx, ev.Cycle, ev.Response)
	case EventTypePull:
		c.onPull(ev.Interest)
	case EventTypeCommitted:
		c.onCommitted(ctx, ev.Cycle, ev.Outcome)
	default:
		c.logger.Warn("unknown event type", "type", int(ev.Type))
	}
	return nil
}

func (c *Collector) onRegistered(err error) error {
	if err != nil {
		c.registration.Store(int32(Unregistered))
		c.logger.Error("prefix registration failed", "identity", c.opts.Identity, "error", err)
		return registrationError(c.opts.Identity, err)
	}
	c.registration.Store(int32(Active))
	c.logger.Info("prefix registered", "identity", c.opts.Identity)

	// The first cycle starts now rather than one interval later.
	c.onTick()
	return nil
}

func (c *Collector) onTick() {
	c.timer = nil
	if c.State() != Idle {
		c.logger.Warn("tick while cycle in progress", "cycle", c.cycle, "state", c.State())
		return
	}

	c.cycle = c.tokens.Generate()
	c.cycleStart = c.clock.Now()
	c.state.Store(int32(AwaitingReading))

	cycle := c.cycle
	interest := &ndn.Interest{
		Name:        c.opts.Reading,
		CanBePrefix: true,
		MustBeFresh: true,
		Lifetime:    c.opts.FetchLifetime,
	}
	c.logger.Debug("fetching reading", "cycle", cycle, "name", interest.Name)

	err := c.face.Express(interest, func(resp face.Response) {
		c.queue.Enqueue(Event{Type: EventTypeReading, Cycle: cycle, Response: resp})
	})
	if err != nil {
		c.logger.Warn("reading request failed", "cycle", cycle, "error", err)
		c.finishCycle(CycleReport{
			Cycle:  cycle,
			Result: ResultFetchFailed,
			Err:    &CycleError{Cycle: cycle, Stage: "fetch", Err: err},
		})
	}
}

func (c *Collector) onReading(ctx context.Context, cycle string, resp face.Response) {
	if cycle != c.cycle || c.State() != AwaitingReading {
		c.logger.Debug("dropping reading for finished cycle", "cycle", cycle)
		return
	}
	c.finishCycle(c.collect(ctx, cycle, resp))
}

// collect turns the fetch resolution into a record, caches it and
// announces it.
func (c *Collector) collect(ctx context.Context, cycle string, resp face.Response) CycleReport {
	report := CycleReport{Cycle: cycle}

	switch resp.Kind {
	case face.KindNack:
		c.logger.Info("reading nacked", "cycle", cycle, "reason", resp.Reason)
		report.Result = ResultFetchNack
		report.Err = &CycleError{Cycle: cycle, Stage: "fetch", Err: fmt.Errorf("nack: %s", resp.Reason)}
		return report
	case face.KindTimeout:
		c.logger.Info("reading timed out", "cycle", cycle)
		report.Result = ResultFetchTimeout
		report.Err = &CycleError{Cycle: cycle, Stage: "fetch", Err: errors.New("reading request timed out")}
		return report
	}

	c.state.Store(int32(Committing))
	d, err := c.builder.Build(ctx, resp.Data.Content)
	if err != nil {
		report.Result = ResultBuildFailed
		report.Err = &CycleError{Cycle: cycle, Stage: "build", Err: err}
		if IsLedgerFailure(err) {
			c.logger.Error("sequence not persisted, no record built", "cycle", cycle, "error", err)
		} else {
			c.logger.Error("record build failed", "cycle", cycle, "error", err)
		}
		return report
	}
	report.Result = ResultRecord
	report.Record = d

	seq, err := record.Sequence(d.Name)
	if err != nil {
		c.logger.Warn("record name carries no sequence number", "cycle", cycle, "name", d.Name, "error", err)
	} else {
		c.metrics.SetNextSequence(seq + 1)
	}

	if evicted := c.cache.Insert(d); evicted != nil {
		c.logger.Debug("cache full, evicted record", "name", evicted.Name)
	}
	c.metrics.SetCachedRecords(c.cache.Len())

	c.logger.Info("record built",
		"cycle", cycle,
		"name", d.Name,
		"seq", seq,
		"content", string(d.Content),
	)

	if c.journal != nil {
		if err := c.journal.WriteRecord(ctx, c.opts.Device, cycle, d, c.clock.Now()); err != nil {
			c.logger.Warn("journal record failed", "cycle", cycle, "name", d.Name, "error", err)
		}
	}

	c.announcer.Announce(d.Name, func(o repo.Outcome) {
		c.queue.Enqueue(Event{Type: EventTypeCommitted, Cycle: cycle, Outcome: o})
	})

	c.metrics.ObserveCycleLatency(c.clock.Now().Sub(c.cycleStart))
	return report
}

// finishCycle returns to Idle and arms the next tick. It runs whatever
// the cycle's outcome, so a failed fetch never stalls collection.
func (c *Collector) finishCycle(report CycleReport) {
	c.state.Store(int32(Idle))
	c.timer = c.clock.AfterFunc(c.opts.Interval, func() {
		c.queue.Enqueue(Event{Type: EventTypeTick})
	})

	c.metrics.IncrementCycle(string(report.Result))
	if c.observer != nil {
		c.observer(report)
	}
}

func (c *Collector) onPull(i *ndn.Interest) {
	d, ok := c.cache.Find(i.Name)
	c.metrics.IncrementPull(ok)
	if !ok {
		c.logger.Info("record not cached", "name", i.Name)
		return
	}
	if err := c.face.Put(d); err != nil {
		c.logger.Warn("serving record failed", "name", d.Name, "error", err)
		return
	}
	c.logger.Debug("served record", "name", d.Name)
}

func (c *Collector) onCommitted(ctx context.Context, cycle string, o repo.Outcome) {
	attrs := []any{
		"cycle", cycle,
		"name", o.Record,
		"outcome", o.Kind,
		"attempts", o.Attempts,
	}
	if o.Kind == repo.Acknowledged {
		c.logger.Info("repo acknowledged insert", append(attrs, "status", o.StatusCode)...)
	} else {
		c.logger.Warn("repo insert not acknowledged", append(attrs, "status", o.StatusCode, "reason", o.Reason)...)
	}
	c.metrics.IncrementCommit(o.Kind.String())

	if c.journal != nil {
		err := c.journal.WriteCommit(ctx, store.CommitEntry{
			Name:       o.Record.String(),
			Outcome:    o.Kind.String(),
			StatusCode: o.StatusCode,
			Reason:     o.Reason,
			Attempts:   o.Attempts,
			FinishedAt: c.clock.Now(),
		})
		if err != nil {
			c.logger.Warn("journal commit failed", "name", o.Record, "error", err)
		}
	}
}
