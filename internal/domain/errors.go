package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or mutually inconsistent input. It is surfaced
// to the caller and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError reports a withdrawal or hold that would breach the minimum
// balance or the overdraft limit.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

// InvalidStateTransitionError reports an operation attempted outside the allowed
// account status, or a status transition the state machine forbids.
type InvalidStateTransitionError struct {
	From AccountStatus
	To   AccountStatus
	Op   string
}

func (e *InvalidStateTransitionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("operation %s not allowed in account status %s", e.Op, e.From)
	}
	return fmt.Sprintf("invalid account status transition from %s to %s", e.From, e.To)
}

// InconsistentLedgerError reports a broken internal invariant, e.g. negative held
// funds after a recompute. The mutation that detected it aborts with the prior
// persisted state untouched.
type InconsistentLedgerError struct {
	Reason string
}

func (e *InconsistentLedgerError) Error() string {
	return "inconsistent ledger: " + e.Reason
}
