// Package record turns raw device readings into named, timestamped,
// sequenced and signed Data packets ready for the repo.
package record

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/datacollector/internal/clock"
	"github.com/roach88/datacollector/internal/ndn"
)

// DefaultFreshness is the freshness period stamped on every record.
const DefaultFreshness = time.Second

// Sequencer hands out persisted sequence numbers (see ledger.Counter).
type Sequencer interface {
	Next(ctx context.Context) (uint32, error)
}

// Options configure a Builder.
type Options struct {
	// Identity is the device's name: location prefix plus device name.
	Identity ndn.Name
	// Destination is the repo prefix appended after Identity.
	Destination ndn.Name
	Trim        TrimPolicy
	Freshness   time.Duration
}

// Builder produces one Record per successful reading.
type Builder struct {
	opts   Options
	seq    Sequencer
	signer ndn.Signer
	clock  clock.Clock
	prefix ndn.Name
}

// NewBuilder returns a Builder. A zero Freshness means DefaultFreshness.
func NewBuilder(opts Options, seq Sequencer, signer ndn.Signer, c clock.Clock) *Builder {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	return &Builder{
		opts:   opts,
		seq:    seq,
		signer: signer,
		clock:  c,
		prefix: opts.Identity.AppendName(opts.Destination),
	}
}

// Prefix returns <identity><destination>, the name every record extends.
func (b *Builder) Prefix() ndn.Name {
	return b.prefix
}

// Build assigns the next sequence number and returns the signed record
// for raw. The sequence number is durable before the name is formed. A
// sequence or signing failure fails this build only; a number consumed by
// a failed signature is not reissued.
func (b *Builder) Build(ctx context.Context, raw []byte) (*ndn.Data, error) {
	seq, err := b.seq.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("assign sequence: %w", err)
	}

	trimmed := b.opts.Trim.Apply(raw)
	content := make([]byte, 0, len(trimmed)+1+21)
	content = append(content, trimmed...)
	content = append(content, '\n')
	content = append(content, FormatTimestamp(b.clock.Now())...)

	d := &ndn.Data{
		Name:      b.prefix.AppendNumber(uint64(seq)),
		Freshness: b.opts.Freshness,
		Content:   content,
	}
	if err := d.Sign(b.signer); err != nil {
		return nil, fmt.Errorf("build record %d: %w", seq, err)
	}
	return d, nil
}

// Sequence extracts the sequence number from a record name.
func Sequence(name ndn.Name) (uint32, error) {
	if len(name) == 0 {
		return 0, fmt.Errorf("empty record name")
	}
	v, err := ndn.Number(name.At(-1))
	if err != nil {
		return 0, fmt.Errorf("record name %s: %w", name, err)
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("record name %s: sequence %d out of range", name, v)
	}
	return uint32(v), nil
}
