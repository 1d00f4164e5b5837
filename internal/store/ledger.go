package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/datacollector/internal/ledger"
)

// SequenceLedger is a ledger.Ledger slot in the sequences table.
type SequenceLedger struct {
	store  *Store
	device string
}

var (
	_ ledger.Ledger = (*SequenceLedger)(nil)
	_ ledger.Peeker = (*SequenceLedger)(nil)
)

// Ledger returns the sequence slot for device.
func (s *Store) Ledger(device string) *SequenceLedger {
	return &SequenceLedger{store: s, device: device}
}

// Load implements ledger.Ledger.
func (l *SequenceLedger) Load(ctx context.Context) (uint32, error) {
	v, ok, err := l.Peek(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		return v, nil
	}
	_, err = l.store.db.ExecContext(ctx,
		`INSERT INTO sequences (device, next_seq) VALUES (?, 0) ON CONFLICT(device) DO NOTHING`,
		l.device)
	if err != nil {
		return 0, &ledger.Error{Op: "load", Device: l.device, Err: err}
	}
	return 0, nil
}

// Peek implements ledger.Peeker.
func (l *SequenceLedger) Peek(ctx context.Context) (uint32, bool, error) {
	var v int64
	err := l.store.db.QueryRowContext(ctx,
		`SELECT next_seq FROM sequences WHERE device = ?`, l.device).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &ledger.Error{Op: "load", Device: l.device, Err: err}
	}
	return uint32(v), true, nil
}

// Store implements ledger.Ledger. The write is committed with
// synchronous=FULL before Store returns.
func (l *SequenceLedger) Store(ctx context.Context, v uint32) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO sequences (device, next_seq) VALUES (?, ?)
		ON CONFLICT(device) DO UPDATE SET next_seq = excluded.next_seq
	`, l.device, int64(v))
	if err != nil {
		return &ledger.Error{Op: "store", Device: l.device, Err: err}
	}
	return nil
}
