/*
Package finance provides the core obligations engine.

PURPOSE:
  This package contains the types and algorithms for working with
  outstanding monetary obligations: aging classification, confidence-
  weighted cash projection, and threshold-based escalation rules.
  Whether the obligation is a customer invoice or a vendor bill, the
  same engine classifies it, forecasts it, and decides when somebody
  needs to hear about it.

KEY CONCEPTS IN THIS FILE (types.go):
  - LedgerEntry: An outstanding receivable or payable obligation
  - Settlement: An immutable record of a partial or full payment
  - Direction: Whether money is expected to flow in or out
  - Entity/Entry/Rule IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Entries are never deleted; settlements only append
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Purity: The three engines are side-effect-free functions; the
     caller supplies every input, including the clock
  4. Auditability: Balance is always derivable from entry + settlements

USAGE:
  entry := finance.LedgerEntry{
      EntityID:  "cust-042",
      DueDate:   finance.NewDate(2026, time.March, 31),
      Amount:    decimal.NewFromInt(1000),
      Direction: finance.Inflow,
  }
  balance := entry.Balance() // 1000

SEE ALSO:
  - aging.go: Bucket classification
  - forecast.go: Cash projection
  - escalation.go: Rule evaluation
  - ledger.go: Settlement recording
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type EntryID string
type RuleID string
type ReferenceID string

// =============================================================================
// DIRECTION - Which way money moves when the entry settles
// =============================================================================

type Direction string

const (
	Inflow  Direction = "inflow"  // receivable: we expect to be paid
	Outflow Direction = "outflow" // payable: we expect to pay
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool {
	return d == Inflow || d == Outflow
}

// =============================================================================
// LEDGER ENTRY - One outstanding obligation
// =============================================================================

// LedgerEntry is a single outstanding obligation (invoice, bill, or
// anticipated entry) tracked by the engine.
//
// INVARIANTS:
//   - Amount > 0
//   - 0 <= Settled <= Amount
//   - Confidence, when set, is in [0, 100]
//
// Balance is Amount - Settled. An entry with balance zero is settled and
// is excluded from both aging and forecasting. Entries are never deleted;
// Settled only increases, via settlements recorded on the ledger.
type LedgerEntry struct {
	ID          EntryID     `json:"id"`
	EntityID    EntityID    `json:"entityId"`
	ReferenceID ReferenceID `json:"referenceId,omitempty"`
	Currency    string      `json:"currency,omitempty"`

	DueDate Date            `json:"dueDate"`
	Amount  decimal.Decimal `json:"amount"`

	// Portion already received (inflow) or paid (outflow).
	Settled decimal.Decimal `json:"receivedOrPaid"`

	// Likelihood (0-100) that the remaining balance settles on schedule.
	// nil means 100. Only meaningful for anticipated entries feeding the
	// forecast; the aging classifier ignores it.
	Confidence *int `json:"confidence,omitempty"`

	Direction Direction `json:"direction"`
}

// Balance returns the unsettled portion of the entry.
func (e LedgerEntry) Balance() decimal.Decimal {
	return e.Amount.Sub(e.Settled)
}

// IsSettled reports whether nothing remains outstanding.
func (e LedgerEntry) IsSettled() bool {
	return !e.Balance().IsPositive()
}

// ConfidenceValue returns the entry's confidence, defaulting to 100.
func (e LedgerEntry) ConfidenceValue() int {
	if e.Confidence == nil {
		return 100
	}
	return *e.Confidence
}

// ExpectedBalance returns the confidence-weighted balance:
// balance * confidence / 100. For confidence in [0,100] the result is
// always in [0, balance].
func (e LedgerEntry) ExpectedBalance() decimal.Decimal {
	conf := decimal.NewFromInt(int64(e.ConfidenceValue()))
	return e.Balance().Mul(conf).Div(decimal.NewFromInt(100))
}

// Validate checks the entry invariants shared by all three engines.
// checkConfidence additionally enforces the [0,100] confidence range
// (required for forecasting, ignored for aging).
func (e LedgerEntry) Validate(checkConfidence bool) error {
	if !e.Amount.IsPositive() {
		return &InvalidEntryError{EntryID: e.ID, Field: "amount", Reason: "must be positive"}
	}
	if e.Settled.IsNegative() {
		return &InvalidEntryError{EntryID: e.ID, Field: "receivedOrPaid", Reason: "must not be negative"}
	}
	if e.Settled.GreaterThan(e.Amount) {
		return &InvalidEntryError{EntryID: e.ID, Field: "receivedOrPaid", Reason: "exceeds amount"}
	}
	if e.DueDate.IsZero() {
		return &InvalidEntryError{EntryID: e.ID, Field: "dueDate", Reason: "missing"}
	}
	if !e.Direction.Valid() {
		return &InvalidEntryError{EntryID: e.ID, Field: "direction", Reason: "unknown direction"}
	}
	if checkConfidence && e.Confidence != nil {
		if *e.Confidence < 0 || *e.Confidence > 100 {
			return &InvalidEntryError{EntryID: e.ID, Field: "confidence", Reason: "outside [0,100]"}
		}
	}
	return nil
}

// validateUniformCurrency rejects a batch that mixes currency codes.
// Entries with an empty currency inherit the batch currency; two distinct
// non-empty codes are an error, never silently summed.
func validateUniformCurrency(entries []LedgerEntry) (string, error) {
	currency := ""
	for _, e := range entries {
		if e.Currency == "" {
			continue
		}
		if currency == "" {
			currency = e.Currency
			continue
		}
		if e.Currency != currency {
			return "", &CurrencyMismatchError{Expected: currency, Got: e.Currency, EntryID: e.ID}
		}
	}
	return currency, nil
}

// =============================================================================
// SETTLEMENT - Immutable record of a payment against an entry
// =============================================================================

// Settlement records a portion of an entry being received or paid.
// Settlements are append-only: corrections are recorded as new entries
// on the other side, never as edits.
type Settlement struct {
	ID      string          `json:"id"`
	EntryID EntryID         `json:"entryId"`
	At      Date            `json:"at"`
	Amount  decimal.Decimal `json:"amount"`

	// Optional external reference (bank statement line, receipt id).
	Reference string `json:"reference,omitempty"`

	// IdempotencyKey guards against double-recording on retries.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}
