// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/treasury-engine/finance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[finance.EntryID]finance.LedgerEntry
	settlements map[finance.EntryID][]finance.Settlement
	idempotency map[string]bool
	items       map[finance.ReferenceID]finance.ItemMeta
	events      []finance.RecordedEvent
	notified    map[eventKey]bool
}

type eventKey struct {
	RuleID      finance.RuleID
	ReferenceID finance.ReferenceID
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[finance.EntryID]finance.LedgerEntry),
		settlements: make(map[finance.EntryID][]finance.Settlement),
		idempotency: make(map[string]bool),
		items:       make(map[finance.ReferenceID]finance.ItemMeta),
		notified:    make(map[eventKey]bool),
	}
}

// Compile-time interface checks.
var (
	_ finance.Store         = (*Memory)(nil)
	_ finance.ItemStore     = (*Memory)(nil)
	_ finance.EscalationLog = (*Memory)(nil)
)

// -----------------------------------------------------------------------------
// finance.Store
// -----------------------------------------------------------------------------

func (m *Memory) SaveEntry(_ context.Context, e finance.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[e.ID]; exists {
		return finance.ErrDuplicateIdempotencyKey
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id finance.EntryID) (*finance.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEntries(_ context.Context) ([]finance.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedEntries(func(finance.LedgerEntry) bool { return true }), nil
}

func (m *Memory) ListOpenEntries(_ context.Context) ([]finance.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedEntries(func(e finance.LedgerEntry) bool { return !e.IsSettled() }), nil
}

func (m *Memory) sortedEntries(keep func(finance.LedgerEntry) bool) []finance.LedgerEntry {
	var out []finance.LedgerEntry
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AppendSettlement records the settlement and advances the entry's
// settled amount in one locked step.
func (m *Memory) AppendSettlement(_ context.Context, s finance.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[s.EntryID]
	if !ok {
		return finance.ErrEntryNotFound
	}
	if s.IdempotencyKey != "" {
		if m.idempotency[s.IdempotencyKey] {
			return finance.ErrDuplicateIdempotencyKey
		}
		m.idempotency[s.IdempotencyKey] = true
	}

	m.settlements[s.EntryID] = append(m.settlements[s.EntryID], s)
	entry.Settled = entry.Settled.Add(s.Amount)
	m.entries[s.EntryID] = entry
	return nil
}

func (m *Memory) Settlements(_ context.Context, entryID finance.EntryID) ([]finance.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.Settlement, len(m.settlements[entryID]))
	copy(out, m.settlements[entryID])
	return out, nil
}

func (m *Memory) SettlementExists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// -----------------------------------------------------------------------------
// finance.ItemStore
// -----------------------------------------------------------------------------

func (m *Memory) SaveItem(_ context.Context, item finance.ItemMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ReferenceID] = item
	return nil
}

func (m *Memory) ListItems(_ context.Context) ([]finance.ItemMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.ItemMeta, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceID < out[j].ReferenceID })
	return out, nil
}

func (m *Memory) ResolveItem(_ context.Context, ref finance.ReferenceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[ref]
	if !ok {
		return finance.ErrEntryNotFound
	}
	item.Resolved = true
	m.items[ref] = item
	return nil
}

// -----------------------------------------------------------------------------
// finance.EscalationLog
// -----------------------------------------------------------------------------

func (m *Memory) RecordEvent(_ context.Context, id string, ev finance.EscalationEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := eventKey{RuleID: ev.RuleID, ReferenceID: ev.ReferenceID}
	if m.notified[k] {
		return false, nil
	}
	m.notified[k] = true
	m.events = append(m.events, finance.RecordedEvent{ID: id, Event: ev})
	return true, nil
}

func (m *Memory) ListEvents(_ context.Context, limit int) ([]finance.RecordedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.RecordedEvent, len(m.events))
	copy(out, m.events)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
