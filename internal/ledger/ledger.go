// Package ledger persists the per-device sequence number.
//
// The persisted value is the next sequence number to assign. It is
// written and flushed before any record carrying the number it replaces
// is built, so a crash can at worst skip a number; it can never reuse one.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ledger is a durable slot holding one sequence value for one device.
type Ledger interface {
	// Load returns the persisted value. A slot with no prior value is
	// initialised to 0, persisted, and reported as 0.
	Load(ctx context.Context) (uint32, error)

	// Store overwrites the slot and returns only once the value is
	// durable.
	Store(ctx context.Context, v uint32) error
}

// Peeker is implemented by ledgers that can report their value without
// initialising an empty slot. Read-only tools use it.
type Peeker interface {
	// Peek returns the persisted value and whether the slot exists.
	Peek(ctx context.Context) (uint32, bool, error)
}

// Error is returned for any ledger I/O or format failure. It is fatal to
// the collection cycle that hit it.
type Error struct {
	Op     string // "load" or "store"
	Device string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrMalformed is wrapped when a slot holds something other than a
// decimal uint32.
var ErrMalformed = errors.New("malformed sequence value")

// FileLedger keeps the value as decimal text in <dir>/<device>.seq.
type FileLedger struct {
	device string
	path   string
}

// NewFileLedger returns the ledger for device under dir. The directory is
// created on first store.
func NewFileLedger(dir, device string) *FileLedger {
	return &FileLedger{device: device, path: filepath.Join(dir, device+".seq")}
}

// Path returns the slot's file path.
func (l *FileLedger) Path() string {
	return l.path
}

// Load implements Ledger.
func (l *FileLedger) Load(ctx context.Context) (uint32, error) {
	v, ok, err := l.Peek(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		if err := l.Store(ctx, 0); err != nil {
			return 0, err
		}
	}
	return v, nil
}

// Peek implements Peeker.
func (l *FileLedger) Peek(ctx context.Context) (uint32, bool, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &Error{Op: "load", Device: l.device, Err: err}
	}
	v, err := ParseValue(string(raw))
	if err != nil {
		return 0, false, &Error{Op: "load", Device: l.device, Err: err}
	}
	return v, true, nil
}

// ParseValue parses the decimal text form of a slot.
func ParseValue(text string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	return uint32(v), nil
}

// Store implements Ledger. The value is written to a temporary file,
// synced, renamed over the slot, and the directory is synced, so the
// slot always holds either the old or the new value.
func (l *FileLedger) Store(ctx context.Context, v uint32) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "store", Device: l.device, Err: err}
	}
	if err := l.writeAtomic(strconv.FormatUint(uint64(v), 10)); err != nil {
		return &Error{Op: "store", Device: l.device, Err: err}
	}
	return nil
}

func (l *FileLedger) writeAtomic(text string) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp slot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp slot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp slot: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("replace slot: %w", err)
	}

	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open ledger directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync ledger directory: %w", err)
	}
	return nil
}
