package ledger

import (
	"context"
	"errors"
	"math"
)

// ErrSequenceExhausted is returned once every uint32 sequence value has
// been assigned. Wrapping to 0 would reuse names.
var ErrSequenceExhausted = errors.New("sequence space exhausted")

// Counter hands out sequence numbers backed by a Ledger.
//
// Counter is not safe for concurrent use; the collector only calls it
// from its event loop.
type Counter struct {
	ledger Ledger
	next   uint32
}

// OpenCounter restores a Counter from the ledger's persisted value.
func OpenCounter(ctx context.Context, l Ledger) (*Counter, error) {
	next, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Counter{ledger: l, next: next}, nil
}

// Next returns the sequence number for the record being built. The
// following value is persisted before Next returns; if persisting fails
// the in-memory value is left unchanged and the error is returned.
func (c *Counter) Next(ctx context.Context) (uint32, error) {
	if c.next == math.MaxUint32 {
		return 0, ErrSequenceExhausted
	}
	seq := c.next
	if err := c.ledger.Store(ctx, seq+1); err != nil {
		return 0, err
	}
	c.next = seq + 1
	return seq, nil
}

// Current returns the next value Next would hand out.
func (c *Counter) Current() uint32 {
	return c.next
}
