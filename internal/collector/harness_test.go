package collector

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/datacollector/internal/cache"
	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/face/facetest"
	"github.com/roach88/datacollector/internal/keychain"
	"github.com/roach88/datacollector/internal/ledger"
	"github.com/roach88/datacollector/internal/ndn"
	"github.com/roach88/datacollector/internal/record"
	"github.com/roach88/datacollector/internal/repo"
	"github.com/roach88/datacollector/internal/store"
	"github.com/roach88/datacollector/internal/testutil"
)

var (
	epoch      = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	identity   = ndn.MustParseName("/org/bld1/room5/sensor7")
	readingFor = ndn.MustParseName("/sensor7")
	repoName   = ndn.MustParseName("/repoA")
)

func recordName(seq uint64) ndn.Name {
	return identity.AppendName(repoName).AppendNumber(seq)
}

// Device reply modes.
const (
	answer = "answer"
	nack   = "nack"
	drop   = "drop"
)

// harness wires a Collector to an in-memory network with a fake device
// and a fake repo.
type harness struct {
	t       *testing.T
	clock   *clock.Fake
	net     *facetest.Network
	ledger  *testutil.MemLedger
	cache   *cache.Store
	journal *memJournal
	opts    []Option
	wrap    func(Builder) Builder

	mu         sync.Mutex
	deviceMode string
	repoMode   string

	fetches chan *ndn.Interest
	inserts chan ndn.Name
	reports chan CycleReport

	col      *Collector
	cancel   context.CancelFunc
	finished chan struct{}
	err      error
}

func newHarness(t *testing.T, l *testutil.MemLedger, opts ...Option) *harness {
	t.Helper()
	c := clock.NewFake(epoch)
	h := &harness{
		t:          t,
		clock:      c,
		net:        facetest.New(c),
		ledger:     l,
		cache:      cache.New(0),
		journal:    newMemJournal(),
		opts:       opts,
		deviceMode: answer,
		repoMode:   answer,
		fetches:    make(chan *ndn.Interest, 32),
		inserts:    make(chan ndn.Name, 32),
		reports:    make(chan CycleReport, 32),
	}

	h.net.Handle(readingFor, func(i *ndn.Interest) (facetest.Reply, bool) {
		h.fetches <- i
		switch h.mode(&h.deviceMode) {
		case nack:
			return facetest.NackReply(ndn.NackNoRoute), true
		case drop:
			return facetest.Reply{}, false
		}
		return facetest.DataReply(&ndn.Data{
			Name:      i.Name.AppendString("reading"),
			Freshness: time.Second,
			Content:   []byte("23.5C~garbage"),
		}), true
	})

	h.net.Handle(repoName, func(i *ndn.Interest) (facetest.Reply, bool) {
		if i.SignatureType != ndn.SignatureEd25519 {
			t.Errorf("insert command %s is not signed", i.Name)
			return facetest.Reply{}, false
		}
		p, err := repo.ParameterOf(i.Name)
		if err != nil {
			t.Errorf("decode insert parameter: %v", err)
			return facetest.Reply{}, false
		}
		h.inserts <- p.Name

		if h.mode(&h.repoMode) == drop {
			return facetest.Reply{}, false
		}
		resp := repo.CommandResponse{StatusCode: repo.StatusInProgress}
		return facetest.DataReply(&ndn.Data{Name: i.Name, Content: resp.Encode()}), true
	})
	return h
}

func (h *harness) mode(m *string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *m
}

func (h *harness) setDevice(mode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceMode = mode
}

func (h *harness) setRepo(mode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.repoMode = mode
}

// start builds the pipeline over the harness ledger and runs it.
func (h *harness) start() {
	h.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	counter, err := ledger.OpenCounter(ctx, h.ledger)
	require.NoError(h.t, err)

	builder := record.NewBuilder(record.Options{
		Identity:    identity,
		Destination: repoName,
		Trim:        record.DefaultTrimPolicy,
	}, counter, testutil.StaticIdentity("/org/bld1/room5/sensor7/data", 1), h.clock)

	var b Builder = builder
	if h.wrap != nil {
		b = h.wrap(builder)
	}

	initiator := repo.NewInitiator(h.net,
		keychain.NewCommandSigner(testutil.StaticIdentity("/org/bld1/room5/sensor7/command", 2), h.clock),
		repo.Options{Prefix: repoName})

	tokens := make([]string, 64)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("cycle-%d", i+1)
	}
	opts := append([]Option{
		WithJournal(h.journal),
		WithTokens(NewFixedGenerator(tokens...)),
		WithObserver(func(r CycleReport) { h.reports <- r }),
	}, h.opts...)

	h.col = New(Options{
		Device:   "sensor7",
		Identity: identity,
		Reading:  readingFor,
		Interval: 10 * time.Second,
	}, h.net, b, h.cache, initiator, h.clock, opts...)

	h.cancel = cancel
	h.finished = make(chan struct{})
	go func() {
		defer close(h.finished)
		h.err = h.col.Run(ctx)
	}()
	h.t.Cleanup(func() { _ = h.stop() })
}

// stop cancels the collector and returns what Run returned.
func (h *harness) stop() error {
	h.cancel()
	return h.result()
}

// result waits for Run to return.
func (h *harness) result() error {
	h.t.Helper()
	select {
	case <-h.finished:
		return h.err
	case <-time.After(5 * time.Second):
		h.t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

func (h *harness) report() CycleReport {
	h.t.Helper()
	return receive(h.t, h.reports, "cycle report")
}

func (h *harness) insert() ndn.Name {
	h.t.Helper()
	return receive(h.t, h.inserts, "insert command")
}

func (h *harness) fetch() *ndn.Interest {
	h.t.Helper()
	return receive(h.t, h.fetches, "reading fetch")
}

// pull requests name as a remote consumer and returns the channel its
// single resolution arrives on.
func (h *harness) pull(name ndn.Name) <-chan face.Response {
	got := make(chan face.Response, 1)
	h.net.Fetch(name, func(r face.Response) { got <- r })
	return got
}

func receive[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func assertNothing[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

// memJournal is a Journal that signals every write.
type memJournal struct {
	records chan *ndn.Data
	commits chan commitWrite
}

type commitWrite struct {
	Name     string
	Outcome  string
	Attempts int
	At       time.Time
}

func newMemJournal() *memJournal {
	return &memJournal{
		records: make(chan *ndn.Data, 32),
		commits: make(chan commitWrite, 32),
	}
}

func (j *memJournal) WriteRecord(_ context.Context, _, _ string, d *ndn.Data, _ time.Time) error {
	j.records <- d
	return nil
}

func (j *memJournal) WriteCommit(_ context.Context, c store.CommitEntry) error {
	j.commits <- commitWrite{Name: c.Name, Outcome: c.Outcome, Attempts: c.Attempts, At: c.FinishedAt}
	return nil
}
