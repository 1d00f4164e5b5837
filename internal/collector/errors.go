package collector

import (
	"errors"
	"fmt"

	"github.com/roach88/datacollector/internal/ledger"
	"github.com/roach88/datacollector/internal/ndn"
)

// ErrRegistration is wrapped by the error Run returns when the identity
// prefix cannot be registered. The collector cannot serve records without
// the registration, so it does not start collecting.
var ErrRegistration = errors.New("prefix registration failed")

// CycleError describes a cycle that ended without a record.
type CycleError struct {
	// Cycle is the cycle token.
	Cycle string

	// Stage is "fetch" or "build".
	Stage string

	Err error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s: %s: %v", e.Cycle, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// IsLedgerFailure reports whether err came from the sequence ledger.
// Uses errors.As to handle wrapped errors.
func IsLedgerFailure(err error) bool {
	var le *ledger.Error
	return errors.As(err, &le) || errors.Is(err, ledger.ErrSequenceExhausted)
}

func registrationError(prefix ndn.Name, err error) error {
	return fmt.Errorf("%w for %s: %w", ErrRegistration, prefix, err)
}
