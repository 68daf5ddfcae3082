/*
ledger.go - Settlement recording over the append-only store

PURPOSE:
  SettlementLedger is the one write path for obligations. It enforces
  the lifecycle invariants the pure engines assume:
  - An entry's settled amount only ever increases
  - A settlement can never push settled past the face value
  - The same settlement (by idempotency key) is recorded at most once

WHY A SEPARATE LAYER?
  The Store is dumb persistence. The invariants live here, once, so a
  SQLite store and a memory store cannot drift on the rules.

CORRECTIONS:
  A mistaken settlement is not edited or deleted. Record a compensating
  entry on the other side; both remain visible. Auditability beats
  convenience.

SEE ALSO:
  - store.go: The persistence interface
  - types.go: LedgerEntry and Settlement
*/
package finance

import "context"

// =============================================================================
// SETTLEMENT LEDGER
// =============================================================================

// SettlementLedger validates and records settlements against entries.
type SettlementLedger struct {
	Store Store
}

func NewSettlementLedger(store Store) *SettlementLedger {
	return &SettlementLedger{Store: store}
}

// CreateEntry validates and persists a new obligation.
func (l *SettlementLedger) CreateEntry(ctx context.Context, e LedgerEntry) error {
	if e.ID == "" {
		return &InvalidEntryError{Field: "id", Reason: "missing"}
	}
	if err := e.Validate(true); err != nil {
		return err
	}
	return l.Store.SaveEntry(ctx, e)
}

// RecordSettlement applies a settlement to an entry. The settled amount
// increases monotonically and never exceeds the face value; the entry's
// balance never goes negative.
func (l *SettlementLedger) RecordSettlement(ctx context.Context, s Settlement) error {
	if !s.Amount.IsPositive() {
		return &InvalidEntryError{EntryID: s.EntryID, Field: "amount", Reason: "settlement must be positive"}
	}

	if s.IdempotencyKey != "" {
		exists, err := l.Store.SettlementExists(ctx, s.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}

	entry, err := l.Store.GetEntry(ctx, s.EntryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	balance := entry.Balance()
	if s.Amount.GreaterThan(balance) {
		return &OverSettlementError{EntryID: s.EntryID, Balance: balance, Requested: s.Amount}
	}

	return l.Store.AppendSettlement(ctx, s)
}

// OutstandingEntries returns the open obligations, the immutable
// snapshot handed to Classify and Project.
func (l *SettlementLedger) OutstandingEntries(ctx context.Context) ([]LedgerEntry, error) {
	return l.Store.ListOpenEntries(ctx)
}

// History returns the full settlement trail for an entry.
func (l *SettlementLedger) History(ctx context.Context, entryID EntryID) ([]Settlement, error) {
	entry, err := l.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return l.Store.Settlements(ctx, entryID)
}
