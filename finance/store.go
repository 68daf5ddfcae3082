/*
store.go - Persistence interface for entries, settlements, and events

PURPOSE:
  Defines the interface between the engine and whatever holds the data.
  The engine itself is pure; the Store is where the data-access
  collaborator plugs in. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

APPEND-ONLY CONTRACT:
  Entries are never deleted, only marked settled through settlements.
  Settlements have no Update or Delete - corrections are new records.
  This keeps settlement history auditable.

IDEMPOTENCY:
  Settlement writes carry an optional idempotency key. A duplicate key
  is rejected, so a network retry or a double-click cannot settle the
  same payment twice.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - finance/store: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level settlement recording using Store
  - store/sqlite/sqlite.go: Concrete implementation
*/
package finance

import "context"

// =============================================================================
// STORE - Entry and settlement persistence
// =============================================================================

// Store persists ledger entries and their settlements.
// Settlements are APPEND-ONLY: no Update, no Delete.
type Store interface {
	// SaveEntry inserts a new entry. Fails if the id already exists.
	SaveEntry(ctx context.Context, e LedgerEntry) error

	// GetEntry returns an entry by id, or nil if absent.
	GetEntry(ctx context.Context, id EntryID) (*LedgerEntry, error)

	// ListEntries returns all entries, ordered by due date then id.
	// Settled entries are included; callers filter as needed.
	ListEntries(ctx context.Context) ([]LedgerEntry, error)

	// ListOpenEntries returns entries with a positive balance.
	ListOpenEntries(ctx context.Context) ([]LedgerEntry, error)

	// AppendSettlement records a settlement and advances the entry's
	// settled amount atomically. The ONLY mutation of an entry.
	AppendSettlement(ctx context.Context, s Settlement) error

	// Settlements returns all settlements for an entry, chronologically.
	Settlements(ctx context.Context, entryID EntryID) ([]Settlement, error)

	// SettlementExists checks an idempotency key.
	SettlementExists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// ITEM STORE - Tracked item metadata for escalation sweeps
// =============================================================================

// ItemStore holds the per-item metadata the escalation evaluator
// inspects (approval timestamps, expiry dates, resolution state).
type ItemStore interface {
	SaveItem(ctx context.Context, item ItemMeta) error
	ListItems(ctx context.Context) ([]ItemMeta, error)
	ResolveItem(ctx context.Context, ref ReferenceID) error
}

// =============================================================================
// ESCALATION LOG - Notification history for cross-sweep dedupe
// =============================================================================

// EscalationLog records which (rule, reference) pairs have already been
// notified. The evaluator is pure and keeps no history; this is the
// caller-side dedupe the contract requires.
type EscalationLog interface {
	// RecordEvent persists an event under the given id. Returns
	// (false, nil) when the (ruleId, referenceId) pair was already
	// recorded, without writing anything.
	RecordEvent(ctx context.Context, id string, ev EscalationEvent) (bool, error)

	// ListEvents returns recorded events, newest first.
	ListEvents(ctx context.Context, limit int) ([]RecordedEvent, error)
}

// RecordedEvent is a persisted escalation event with its assigned id.
type RecordedEvent struct {
	ID    string          `json:"id"`
	Event EscalationEvent `json:"event"`
}
