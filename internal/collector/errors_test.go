package collector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/datacollector/internal/ledger"
	"github.com/roach88/datacollector/internal/ndn"
)

func TestIsLedgerFailure(t *testing.T) {
	lerr := &ledger.Error{Op: "store", Device: "sensor7", Err: errors.New("disk full")}

	assert.True(t, IsLedgerFailure(lerr))
	assert.True(t, IsLedgerFailure(fmt.Errorf("build: %w", lerr)))
	assert.True(t, IsLedgerFailure(&CycleError{Cycle: "c", Stage: "build", Err: ledger.ErrSequenceExhausted}))
	assert.False(t, IsLedgerFailure(errors.New("sign failed")))
}

func TestRegistrationError_WrapsBoth(t *testing.T) {
	cause := errors.New("forwarder did not answer")
	err := registrationError(ndn.MustParseName("/org/bld1"), cause)

	assert.ErrorIs(t, err, ErrRegistration)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "prefix registration failed for /org/bld1: forwarder did not answer", err.Error())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "awaiting-reading", AwaitingReading.String())
	assert.Equal(t, "committing", Committing.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "state(9)", State(9).String())
}
