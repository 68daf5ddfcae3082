/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (finance.Store, finance.ItemStore,
  finance.EscalationLog) plus config and sweep-run records using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE on the settlements table; an entry's settled
    amount advances only through AppendSettlement, atomically with the
    settlement row
  - escalation_events carries a UNIQUE (rule_id, reference_id) index so
    the same escalation can never be recorded twice across sweeps

KEY TABLES:
  entries:            Outstanding obligations
  settlements:        Immutable payment records (append-only)
  configs:            Versioned JSON engine configuration
  tracked_items:      Per-item metadata for escalation rules
  escalation_events:  Recorded notification directives (dedupe log)
  sweep_runs:         Audit trail of scheduler sweeps

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/treasury.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := finance.NewSettlementLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - finance/store.go: Interface definitions
  - finance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/finance"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time interface checks.
var (
	_ finance.Store         = (*Store)(nil)
	_ finance.ItemStore     = (*Store)(nil)
	_ finance.EscalationLog = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Outstanding obligations. settled_amount advances only via
	-- AppendSettlement; rows are never deleted.
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		reference_id TEXT,
		currency TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		settled_amount TEXT NOT NULL,
		confidence INTEGER,
		direction TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_entity ON entries(entity_id);
	CREATE INDEX IF NOT EXISTS idx_entries_due_date ON entries(due_date);

	-- Settlements (append-only)
	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES entries(id),
		settled_at TEXT NOT NULL,
		amount TEXT NOT NULL,
		reference TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_entry ON settlements(entry_id);

	-- Engine configuration (aging boundaries + escalation rules), versioned
	CREATE TABLE IF NOT EXISTS configs (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Items under escalation watch (approvals, quotes, deals)
	CREATE TABLE IF NOT EXISTS tracked_items (
		reference_id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		outstanding_amount TEXT NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		approval_requested_at TEXT,
		last_response_at TEXT,
		expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracked_items_entity ON tracked_items(entity_id);
	CREATE INDEX IF NOT EXISTS idx_tracked_items_resolved ON tracked_items(resolved);

	-- Recorded escalation events. The unique pair index is the
	-- cross-sweep dedupe the evaluator contract delegates to callers.
	CREATE TABLE IF NOT EXISTS escalation_events (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		triggered_at TEXT NOT NULL,
		channels TEXT NOT NULL,
		escalate_to_tier TEXT NOT NULL,
		context_value TEXT NOT NULL,
		context_unit TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_rule_reference
		ON escalation_events(rule_id, reference_id);
	CREATE INDEX IF NOT EXISTS idx_events_entity ON escalation_events(entity_id);

	-- Sweep runs (audit trail for the scheduler)
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		status TEXT NOT NULL,
		events_emitted INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (finance.Store interface)
// =============================================================================

// SaveEntry inserts a new obligation.
func (s *Store) SaveEntry(ctx context.Context, e finance.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var confidence any
	if e.Confidence != nil {
		confidence = *e.Confidence
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, entity_id, reference_id, currency, due_date, amount, settled_amount, confidence, direction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.EntityID,
		e.ReferenceID,
		e.Currency,
		e.DueDate.String(),
		e.Amount.String(),
		e.Settled.String(),
		confidence,
		e.Direction,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("entry %s already exists: %w", e.ID, finance.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// GetEntry returns an entry by id, or nil if absent.
func (s *Store) GetEntry(ctx context.Context, id finance.EntryID) (*finance.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, reference_id, currency, due_date, amount, settled_amount, confidence, direction
		FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns all entries ordered by due date then id.
func (s *Store) ListEntries(ctx context.Context) ([]finance.LedgerEntry, error) {
	return s.queryEntries(ctx, ``)
}

// ListOpenEntries returns entries with a positive balance.
func (s *Store) ListOpenEntries(ctx context.Context) ([]finance.LedgerEntry, error) {
	return s.queryEntries(ctx, `WHERE CAST(amount AS REAL) > CAST(settled_amount AS REAL)`)
}

func (s *Store) queryEntries(ctx context.Context, where string) ([]finance.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, reference_id, currency, due_date, amount, settled_amount, confidence, direction
		FROM entries `+where+` ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []finance.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*finance.LedgerEntry, error) {
	var (
		e          finance.LedgerEntry
		refID      sql.NullString
		dueDate    string
		amount     string
		settled    string
		confidence sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.EntityID, &refID, &e.Currency, &dueDate, &amount, &settled, &confidence, &e.Direction); err != nil {
		return nil, err
	}

	e.ReferenceID = finance.ReferenceID(refID.String)

	due, err := finance.ParseDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt due_date %q: %w", dueDate, err)
	}
	e.DueDate = due

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	if e.Settled, err = decimal.NewFromString(settled); err != nil {
		return nil, fmt.Errorf("corrupt settled_amount %q: %w", settled, err)
	}
	if confidence.Valid {
		c := int(confidence.Int64)
		e.Confidence = &c
	}
	return &e, nil
}

// AppendSettlement records the settlement row and advances the entry's
// settled amount in one database transaction.
func (s *Store) AppendSettlement(ctx context.Context, st finance.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	var amount, settled string
	err = tx.QueryRowContext(ctx,
		`SELECT amount, settled_amount FROM entries WHERE id = ?`, st.EntryID).Scan(&amount, &settled)
	if err == sql.ErrNoRows {
		return finance.ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load entry for settlement: %w", err)
	}

	cur, err := decimal.NewFromString(settled)
	if err != nil {
		return fmt.Errorf("corrupt settled_amount %q: %w", settled, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settlements (id, entry_id, settled_at, amount, reference, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID,
		st.EntryID,
		st.At.String(),
		st.Amount.String(),
		st.Reference,
		nullString(st.IdempotencyKey),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return finance.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append settlement: %w", err)
	}

	newSettled := cur.Add(st.Amount)
	if _, err := tx.ExecContext(ctx,
		`UPDATE entries SET settled_amount = ? WHERE id = ?`,
		newSettled.String(), st.EntryID); err != nil {
		return fmt.Errorf("failed to advance settled amount: %w", err)
	}

	return tx.Commit()
}

// Settlements returns all settlements for an entry, chronologically.
func (s *Store) Settlements(ctx context.Context, entryID finance.EntryID) ([]finance.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, settled_at, amount, reference, idempotency_key
		FROM settlements WHERE entry_id = ? ORDER BY settled_at, created_at`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var out []finance.Settlement
	for rows.Next() {
		var (
			st     finance.Settlement
			at     string
			amount string
			ref    sql.NullString
			key    sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.EntryID, &at, &amount, &ref, &key); err != nil {
			return nil, err
		}
		if st.At, err = finance.ParseDate(at); err != nil {
			return nil, fmt.Errorf("corrupt settled_at %q: %w", at, err)
		}
		if st.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt settlement amount %q: %w", amount, err)
		}
		st.Reference = ref.String
		st.IdempotencyKey = key.String
		out = append(out, st)
	}
	return out, rows.Err()
}

// SettlementExists checks an idempotency key.
func (s *Store) SettlementExists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM settlements WHERE idempotency_key = ?`, idempotencyKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// SaveConfig stores a new configuration version.
func (s *Store) SaveConfig(ctx context.Context, configJSON []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO configs (config_json, created_at) VALUES (?, ?)`,
		string(configJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LatestConfig returns the most recent configuration document, or nil
// when none has been stored yet.
func (s *Store) LatestConfig(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM configs ORDER BY version DESC LIMIT 1`).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return []byte(configJSON), nil
}

// =============================================================================
// ITEM STORE (finance.ItemStore interface)
// =============================================================================

// SaveItem inserts or refreshes a tracked item.
func (s *Store) SaveItem(ctx context.Context, item finance.ItemMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_items
		(reference_id, entity_id, outstanding_amount, resolved, approval_requested_at, last_response_at, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference_id) DO UPDATE SET
			entity_id = excluded.entity_id,
			outstanding_amount = excluded.outstanding_amount,
			resolved = excluded.resolved,
			approval_requested_at = excluded.approval_requested_at,
			last_response_at = excluded.last_response_at,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		item.ReferenceID,
		item.EntityID,
		item.OutstandingAmount.String(),
		item.Resolved,
		nullTime(item.ApprovalRequestedAt),
		nullTime(item.LastResponseAt),
		nullDate(item.ExpiresAt),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// ListItems returns all tracked items.
func (s *Store) ListItems(ctx context.Context) ([]finance.ItemMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT reference_id, entity_id, outstanding_amount, resolved, approval_requested_at, last_response_at, expires_at
		FROM tracked_items ORDER BY reference_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []finance.ItemMeta
	for rows.Next() {
		var (
			item      finance.ItemMeta
			amount    string
			approval  sql.NullString
			response  sql.NullString
			expiresAt sql.NullString
		)
		if err := rows.Scan(&item.ReferenceID, &item.EntityID, &amount, &item.Resolved, &approval, &response, &expiresAt); err != nil {
			return nil, err
		}
		if item.OutstandingAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt outstanding_amount %q: %w", amount, err)
		}
		if item.ApprovalRequestedAt, err = parseNullTime(approval); err != nil {
			return nil, err
		}
		if item.LastResponseAt, err = parseNullTime(response); err != nil {
			return nil, err
		}
		if expiresAt.Valid && expiresAt.String != "" {
			d, err := finance.ParseDate(expiresAt.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt expires_at %q: %w", expiresAt.String, err)
			}
			item.ExpiresAt = &d
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ResolveItem marks a tracked item resolved. Resolved items stop
// qualifying for pending-style triggers.
func (s *Store) ResolveItem(ctx context.Context, ref finance.ReferenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE tracked_items SET resolved = TRUE, updated_at = ? WHERE reference_id = ?`,
		time.Now().UTC().Format(time.RFC3339), ref)
	if err != nil {
		return fmt.Errorf("failed to resolve item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.ErrEntryNotFound
	}
	return nil
}

// =============================================================================
// ESCALATION LOG (finance.EscalationLog interface)
// =============================================================================

// RecordEvent persists an event. Returns (false, nil) when the
// (ruleId, referenceId) pair was already notified; the unique index
// makes the dedupe atomic even under concurrent sweeps.
func (s *Store) RecordEvent(ctx context.Context, id string, ev finance.EscalationEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := make([]string, len(ev.Channels))
	for i, c := range ev.Channels {
		channels[i] = string(c)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalation_events
		(id, rule_id, entity_id, reference_id, triggered_at, channels, escalate_to_tier, context_value, context_unit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		ev.RuleID,
		ev.EntityID,
		ev.ReferenceID,
		ev.TriggeredAt.UTC().Format(time.RFC3339),
		strings.Join(channels, ","),
		ev.EscalateToTier,
		ev.ContextSnapshot.Value.String(),
		ev.ContextSnapshot.Unit,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return true, nil
}

// ListEvents returns recorded events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]finance.RecordedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, entity_id, reference_id, triggered_at, channels, escalate_to_tier, context_value, context_unit
		FROM escalation_events ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []finance.RecordedEvent
	for rows.Next() {
		var (
			rec         finance.RecordedEvent
			triggeredAt string
			channels    string
			value       string
		)
		if err := rows.Scan(&rec.ID, &rec.Event.RuleID, &rec.Event.EntityID, &rec.Event.ReferenceID,
			&triggeredAt, &channels, &rec.Event.EscalateToTier, &value, &rec.Event.ContextSnapshot.Unit); err != nil {
			return nil, err
		}
		if rec.Event.TriggeredAt, err = time.Parse(time.RFC3339, triggeredAt); err != nil {
			return nil, fmt.Errorf("corrupt triggered_at %q: %w", triggeredAt, err)
		}
		for _, c := range strings.Split(channels, ",") {
			if c != "" {
				rec.Event.Channels = append(rec.Event.Channels, finance.Channel(c))
			}
		}
		if rec.Event.ContextSnapshot.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("corrupt context_value %q: %w", value, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

// SweepRun is one scheduler pass, recorded for audit and UI display.
type SweepRun struct {
	ID            string
	StartedAt     time.Time
	CompletedAt   *time.Time
	Status        string // running, completed, failed
	EventsEmitted int
	Error         string
}

// SaveSweepRun inserts or updates a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, started_at, completed_at, status, events_emitted, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			status = excluded.status,
			events_emitted = excluded.events_emitted,
			error = excluded.error`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		nullTime(run.CompletedAt),
		run.Status,
		run.EventsEmitted,
		nullString(run.Error),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns recent sweep runs, newest first.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, status, events_emitted, error
		FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	defer rows.Close()

	var out []SweepRun
	for rows.Next() {
		var (
			run       SweepRun
			startedAt string
			completed sql.NullString
			runErr    sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedAt, &completed, &run.Status, &run.EventsEmitted, &runErr); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("corrupt started_at %q: %w", startedAt, err)
		}
		if run.CompletedAt, err = parseNullTime(completed); err != nil {
			return nil, err
		}
		run.Error = runErr.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullDate(d *finance.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
