package face

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/engine"
	ndnface "github.com/named-data/ndnd/std/engine/face"
	stdndn "github.com/named-data/ndnd/std/ndn"
	mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/ndn"
)

// DefaultForwarder is the local forwarder's Unix socket.
const DefaultForwarder = "unix:///run/nfd.sock"

// routeFlagCapture stops the forwarder from sending Interests under a
// registered prefix past this face.
const routeFlagCapture uint64 = 2

// inbound is an Interest received under a registered prefix, waiting for
// the Data that answers it.
type inbound struct {
	interest *ndn.Interest
	reply    stdndn.WireReplyFunc
	expires  time.Time
}

// Engine is a Face backed by an ndnd engine. The engine owns the
// connection, the pending Interest table and Nack handling; Engine
// translates between its callbacks and the collector's packet types.
type Engine struct {
	engine stdndn.Engine
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	inbound []inbound
}

// Dial starts an engine connected to the forwarder at addr
// ("unix:///path" or "tcp://host:port").
func Dial(addr string, c clock.Clock) (*Engine, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse forwarder address %q: %w", addr, err)
	}
	var f stdndn.Face
	switch u.Scheme {
	case "unix":
		f = ndnface.NewStreamFace("unix", u.Path, true)
	case "tcp", "tcp4", "tcp6":
		f = ndnface.NewStreamFace(u.Scheme, u.Host, false)
	default:
		return nil, fmt.Errorf("forwarder address %q: unsupported scheme %q", addr, u.Scheme)
	}
	e := NewEngine(engine.NewBasicEngine(f), c)
	if err := e.Start(); err != nil {
		return nil, fmt.Errorf("connect to forwarder %s: %w", addr, err)
	}
	return e, nil
}

// NewEngine wraps an engine that has not been started.
func NewEngine(e stdndn.Engine, c clock.Clock) *Engine {
	return &Engine{
		engine: e,
		clock:  c,
		logger: slog.Default().With("component", "face"),
	}
}

// Start opens the engine's face.
func (e *Engine) Start() error {
	return e.engine.Start()
}

// Run blocks until ctx is cancelled, then stops the engine and returns
// ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	<-ctx.Done()
	if err := e.Close(); err != nil {
		e.logger.Warn("stopping engine", "error", err)
	}
	return ctx.Err()
}

// Close stops the engine. Pending Interests are cancelled.
func (e *Engine) Close() error {
	if !e.engine.IsRunning() {
		return nil
	}
	return e.engine.Stop()
}

// Express implements Face. Cancelled and failed Interests resolve as
// timeouts.
func (e *Engine) Express(i *ndn.Interest, onResponse ResponseFunc) error {
	encoded, err := i.Encoded()
	if err != nil {
		return err
	}
	return e.engine.Express(encoded, func(args stdndn.ExpressCallbackArgs) {
		switch args.Result {
		case stdndn.InterestResultData:
			onResponse(Response{Kind: KindData, Data: ndn.FromData(args.Data, args.RawData)})
		case stdndn.InterestResultNack:
			onResponse(Response{Kind: KindNack, Reason: ndn.NackReason(args.NackReason)})
		default:
			onResponse(Response{Kind: KindTimeout})
		}
	})
}

// Put implements Face. d answers every unexpired inbound Interest it
// satisfies; Data nobody asked for is dropped.
func (e *Engine) Put(d *ndn.Data) error {
	now := e.clock.Now()
	var replies []stdndn.WireReplyFunc

	e.mu.Lock()
	kept := e.inbound[:0]
	for _, in := range e.inbound {
		switch {
		case now.After(in.expires):
		case in.interest.Matches(d):
			replies = append(replies, in.reply)
		default:
			kept = append(kept, in)
		}
	}
	clear(e.inbound[len(kept):])
	e.inbound = kept
	e.mu.Unlock()

	if len(replies) == 0 {
		e.logger.Debug("no interest for data", "name", d.Name)
		return nil
	}
	wire := enc.Wire{d.Wire()}
	for _, reply := range replies {
		if err := reply(wire); err != nil {
			return fmt.Errorf("put %s: %w", d.Name, err)
		}
	}
	return nil
}

// Register implements Face. The route is requested with the CAPTURE flag.
// onResult runs on its own goroutine once the forwarder answers.
func (e *Engine) Register(prefix ndn.Name, onInterest InterestFunc, onResult func(error)) {
	err := e.engine.AttachHandler(prefix.Lib(), func(args stdndn.InterestHandlerArgs) {
		i := ndn.FromInterest(args.Interest)
		e.remember(i, args.Reply)
		onInterest(i)
	})
	if err != nil {
		onResult(fmt.Errorf("register %s: %w", prefix, err))
		return
	}

	go func() {
		res, err := e.engine.ExecMgmtCmd("rib", "register", &mgmt.ControlArgs{
			Name:  prefix.Lib(),
			Flags: optional.Some(routeFlagCapture),
		})
		if err != nil {
			onResult(fmt.Errorf("register %s: %w", prefix, err))
			return
		}
		if resp, ok := res.(*mgmt.ControlResponse); ok && resp.Val != nil && resp.Val.StatusCode != 200 {
			onResult(fmt.Errorf("register %s: forwarder answered %d %s", prefix, resp.Val.StatusCode, resp.Val.StatusText))
			return
		}
		onResult(nil)
	}()
}

func (e *Engine) remember(i *ndn.Interest, reply stdndn.WireReplyFunc) {
	now := e.clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.inbound[:0]
	for _, in := range e.inbound {
		if !now.After(in.expires) {
			kept = append(kept, in)
		}
	}
	clear(e.inbound[len(kept):])
	e.inbound = append(kept, inbound{
		interest: i,
		reply:    reply,
		expires:  now.Add(i.EffectiveLifetime()),
	})
}

// Waiting returns the number of inbound Interests not yet answered or
// expired.
func (e *Engine) Waiting() int {
	now := e.clock.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, in := range e.inbound {
		if !now.After(in.expires) {
			n++
		}
	}
	return n
}
