package testutil

import (
	"context"
	"sync"

	"github.com/roach88/datacollector/internal/ledger"
)

// MemLedger is an in-memory ledger.Ledger for tests.
//
// Unlike ledger.FileLedger, MemLedger can be made to fail on demand and
// counts its stores, so tests can check that a value was persisted
// before it was used.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemLedger struct {
	mu       sync.Mutex
	device   string
	value    uint32
	present  bool
	stores   int
	failNext error
}

// NewMemLedger creates an empty ledger for device.
func NewMemLedger(device string) *MemLedger {
	return &MemLedger{device: device}
}

// NewMemLedgerAt creates a ledger for device already holding v.
func NewMemLedgerAt(device string, v uint32) *MemLedger {
	return &MemLedger{device: device, value: v, present: true}
}

// Load implements ledger.Ledger.
func (l *MemLedger) Load(context.Context) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.present = true
	return l.value, nil
}

// Store implements ledger.Ledger.
func (l *MemLedger) Store(_ context.Context, v uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failNext; err != nil {
		l.failNext = nil
		return &ledger.Error{Op: "store", Device: l.device, Err: err}
	}
	l.value = v
	l.present = true
	l.stores++
	return nil
}

// FailNextStore makes the next Store return err wrapped in *ledger.Error.
func (l *MemLedger) FailNextStore(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

// Value returns the persisted value.
func (l *MemLedger) Value() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Stores returns how many stores succeeded.
func (l *MemLedger) Stores() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stores
}
