/*
errors.go - Centralized error types for the obligations engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Validation errors are detected before any aggregation begins and abort
  the entire call: a single malformed entry must never silently
  under-report a portfolio total.

ERROR CATEGORIES:
  1. Entry errors     - Malformed obligations (bad amount, missing due date)
  2. Batch errors     - Cross-entry problems (mixed currencies)
  3. Parameter errors - Bad engine inputs (non-positive horizon)
  4. Rule errors      - Malformed escalation configuration
  5. Ledger errors    - Settlement recording failures

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, finance.ErrCurrencyMismatch) {
        // surface to the operator; retrying the same input cannot help
    }

SEE ALSO:
  - aging.go, forecast.go, escalation.go: Produce these errors
  - ledger.go: Settlement errors
*/
package finance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidEntry is returned when a ledger entry violates its
	// invariants (amount <= 0, settled > amount, missing due date,
	// confidence outside [0,100]).
	ErrInvalidEntry = errors.New("invalid ledger entry")

	// ErrCurrencyMismatch is returned when entries within one call declare
	// different currency codes. Mixed currencies are never summed.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidHorizon is returned when a projection horizon is not
	// a positive number of days.
	ErrInvalidHorizon = errors.New("invalid projection horizon")

	// ErrInvalidRule is returned when an escalation rule is malformed
	// (negative threshold, no channels, unknown trigger kind).
	ErrInvalidRule = errors.New("invalid escalation rule")

	// ErrEntryNotFound is returned when a referenced entry doesn't exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrOverSettlement is returned when a settlement would push the
	// settled amount past the entry's face value.
	ErrOverSettlement = errors.New("settlement exceeds outstanding balance")

	// ErrDuplicateIdempotencyKey is returned when a settlement with the
	// same idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidEntryError identifies which entry and field failed validation.
type InvalidEntryError struct {
	EntryID EntryID
	Field   string
	Reason  string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid entry %s: %s %s", e.EntryID, e.Field, e.Reason)
}

func (e *InvalidEntryError) Unwrap() error { return ErrInvalidEntry }

// CurrencyMismatchError reports the two currency codes that collided.
type CurrencyMismatchError struct {
	Expected string
	Got      string
	EntryID  EntryID
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: entry %s declares %q, batch is %q", e.EntryID, e.Got, e.Expected)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// InvalidHorizonError reports the rejected horizon value.
type InvalidHorizonError struct {
	HorizonDays int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("invalid horizon: %d days (must be positive)", e.HorizonDays)
}

func (e *InvalidHorizonError) Unwrap() error { return ErrInvalidHorizon }

// InvalidRuleError identifies which rule and why. A rule referencing an
// unknown trigger kind fails fast rather than being silently ignored, so
// a configuration typo cannot cause missed escalations.
type InvalidRuleError struct {
	RuleID RuleID
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// OverSettlementError details a rejected settlement.
type OverSettlementError struct {
	EntryID   EntryID
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *OverSettlementError) Error() string {
	return fmt.Sprintf("settlement of %v exceeds balance %v on entry %s",
		e.Requested, e.Balance, e.EntryID)
}

func (e *OverSettlementError) Unwrap() error { return ErrOverSettlement }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is a rejection of caller input.
// Retrying with the same input produces the same error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidHorizon) ||
		errors.Is(err, ErrInvalidRule)
}

// IsConflict returns true for idempotency and monotonicity violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrOverSettlement)
}
