package repo

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/datacollector/internal/face"
	"github.com/roach88/datacollector/internal/keychain"
	"github.com/roach88/datacollector/internal/ndn"
)

// DefaultCommandLifetime bounds each insert command exchange.
const DefaultCommandLifetime = 4 * time.Second

// OutcomeKind classifies how an announcement ended.
type OutcomeKind int

const (
	// Acknowledged means the repo accepted the insert command.
	Acknowledged OutcomeKind = iota + 1
	// NegativeAcknowledged means the repo refused the command, the network
	// returned a Nack, or the command could not be sent.
	NegativeAcknowledged
	// TimedOut means no reply arrived within the command lifetime.
	TimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case Acknowledged:
		return "acknowledged"
	case NegativeAcknowledged:
		return "negative-acknowledged"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of announcing one record.
type Outcome struct {
	Kind       OutcomeKind
	Record     ndn.Name
	StatusCode uint64
	Reason     string
	Attempts   int
}

// RetryPolicy bounds how often a failed command is re-sent.
type RetryPolicy struct {
	// MaxAttempts is the total number of commands sent per record.
	// Values below 1 mean 1.
	MaxAttempts int
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Options configure an Initiator.
type Options struct {
	// Prefix is the repo's command prefix, e.g. /localhost/repoA.
	Prefix   ndn.Name
	Lifetime time.Duration
	Retry    RetryPolicy
}

// Initiator sends insert commands for built records.
type Initiator struct {
	face   face.Face
	cmd    *keychain.CommandSigner
	opts   Options
	logger *slog.Logger
}

// NewInitiator returns an Initiator that signs commands with cmd.
func NewInitiator(f face.Face, cmd *keychain.CommandSigner, opts Options) *Initiator {
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultCommandLifetime
	}
	return &Initiator{
		face:   f,
		cmd:    cmd,
		opts:   opts,
		logger: slog.Default().With("component", "repo"),
	}
}

// InsertCommand returns the unsigned insert command name for record.
func (in *Initiator) InsertCommand(record ndn.Name) ndn.Name {
	return in.opts.Prefix.
		AppendString("insert").
		Append(ndn.BytesComponent(CommandParameter{Name: record}.Encode()))
}

// Announce asks the repo to insert record. done is called exactly once
// with the final outcome, from whichever goroutine resolves the last
// attempt. Announce never blocks on the reply.
func (in *Initiator) Announce(record ndn.Name, done func(Outcome)) {
	in.attempt(record, 1, done)
}

func (in *Initiator) attempt(record ndn.Name, n int, done func(Outcome)) {
	// Timeouts and Nacks are retried; a repo refusal is final.
	fail := func(kind OutcomeKind, reason string) {
		if n < in.opts.Retry.attempts() {
			in.logger.Debug("retrying insert command", "name", record, "attempt", n+1, "reason", reason)
			in.attempt(record, n+1, done)
			return
		}
		done(Outcome{Kind: kind, Record: record, Reason: reason, Attempts: n})
	}

	command, err := in.cmd.MakeCommand(in.InsertCommand(record), in.opts.Lifetime)
	if err != nil {
		done(Outcome{Kind: NegativeAcknowledged, Record: record, Reason: err.Error(), Attempts: n})
		return
	}

	err = in.face.Express(command, func(resp face.Response) {
		switch resp.Kind {
		case face.KindTimeout:
			fail(TimedOut, "command lifetime expired")
		case face.KindNack:
			fail(NegativeAcknowledged, "nack: "+resp.Reason.String())
		case face.KindData:
			r, err := DecodeCommandResponse(resp.Data.Content)
			switch {
			case err != nil:
				done(Outcome{Kind: NegativeAcknowledged, Record: record, Reason: err.Error(), Attempts: n})
			case r.Rejected():
				done(Outcome{Kind: NegativeAcknowledged, Record: record, StatusCode: r.StatusCode,
					Reason: fmt.Sprintf("repo status %d", r.StatusCode), Attempts: n})
			default:
				done(Outcome{Kind: Acknowledged, Record: record, StatusCode: r.StatusCode, Attempts: n})
			}
		}
	})
	if err != nil {
		fail(NegativeAcknowledged, err.Error())
	}
}
