/*
sqlite_test.go - Store-level tests against an in-memory database

Tests for:
- Settlement append advancing the settled amount atomically
- Idempotency key uniqueness
- Escalation event dedupe via the unique (rule_id, reference_id) index
*/
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/treasury-engine/finance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedEntry(t *testing.T, store *Store, id string, amount int64) {
	t.Helper()
	require.NoError(t, store.SaveEntry(context.Background(), finance.LedgerEntry{
		ID:        finance.EntryID(id),
		EntityID:  "cust-1",
		DueDate:   finance.NewDate(2026, time.April, 1),
		Amount:    decimal.NewFromInt(amount),
		Direction: finance.Inflow,
	}))
}

func TestAppendSettlement_AdvancesSettledAmount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedEntry(t, store, "inv-1", 1000)

	require.NoError(t, store.AppendSettlement(ctx, finance.Settlement{
		ID: "s-1", EntryID: "inv-1",
		At:     finance.NewDate(2026, time.April, 5),
		Amount: decimal.NewFromInt(400),
	}))

	entry, err := store.GetEntry(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Settled.Equal(decimal.NewFromInt(400)), "settled should be 400, got %v", entry.Settled)
	assert.True(t, entry.Balance().Equal(decimal.NewFromInt(600)))

	history, err := store.Settlements(ctx, "inv-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAppendSettlement_UnknownEntry(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendSettlement(context.Background(), finance.Settlement{
		ID: "s-1", EntryID: "ghost",
		At:     finance.NewDate(2026, time.April, 5),
		Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, finance.ErrEntryNotFound)
}

func TestAppendSettlement_DuplicateIdempotencyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedEntry(t, store, "inv-1", 1000)

	s := finance.Settlement{
		ID: "s-1", EntryID: "inv-1",
		At:             finance.NewDate(2026, time.April, 5),
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "pay-42",
	}
	require.NoError(t, store.AppendSettlement(ctx, s))

	s.ID = "s-2"
	err := store.AppendSettlement(ctx, s)
	assert.ErrorIs(t, err, finance.ErrDuplicateIdempotencyKey)

	// The failed retry must not have advanced the settled amount.
	entry, err := store.GetEntry(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, entry.Settled.Equal(decimal.NewFromInt(100)), "settled should still be 100, got %v", entry.Settled)

	exists, err := store.SettlementExists(ctx, "pay-42")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListOpenEntries_ExcludesSettled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedEntry(t, store, "inv-open", 1000)
	seedEntry(t, store, "inv-paid", 500)

	require.NoError(t, store.AppendSettlement(ctx, finance.Settlement{
		ID: "s-1", EntryID: "inv-paid",
		At:     finance.NewDate(2026, time.April, 5),
		Amount: decimal.NewFromInt(500),
	}))

	open, err := store.ListOpenEntries(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, finance.EntryID("inv-open"), open[0].ID)
}

func TestRecordEvent_DedupesByRuleAndReference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := finance.EscalationEvent{
		RuleID:         "r-1",
		EntityID:       "cust-1",
		ReferenceID:    "inv-100",
		TriggeredAt:    time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC),
		Channels:       []finance.Channel{finance.ChannelEmail, finance.ChannelInApp},
		EscalateToTier: "manager",
		ContextSnapshot: finance.ContextValue{
			Value: decimal.NewFromInt(5),
			Unit:  "hours",
		},
	}

	recorded, err := store.RecordEvent(ctx, "ev-1", ev)
	require.NoError(t, err)
	assert.True(t, recorded)

	// Same (rule, reference) pair from a later sweep: silently deduped.
	ev.TriggeredAt = ev.TriggeredAt.Add(time.Hour)
	recorded, err = store.RecordEvent(ctx, "ev-2", ev)
	require.NoError(t, err)
	assert.False(t, recorded)

	// A different rule on the same reference is a distinct escalation.
	ev.RuleID = "r-2"
	recorded, err = store.RecordEvent(ctx, "ev-3", ev)
	require.NoError(t, err)
	assert.True(t, recorded)

	events, err := store.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []finance.Channel{finance.ChannelEmail, finance.ChannelInApp}, events[0].Event.Channels)
}

func TestResolveItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveItem(ctx, finance.ItemMeta{
		ReferenceID:       "inv-100",
		EntityID:          "cust-1",
		OutstandingAmount: decimal.NewFromInt(5000),
	}))
	require.NoError(t, store.ResolveItem(ctx, "inv-100"))

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Resolved)

	assert.ErrorIs(t, store.ResolveItem(ctx, "ghost"), finance.ErrEntryNotFound)
}

func TestConfigVersioning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.SaveConfig(ctx, []byte(`{"rules":[]}`)))
	require.NoError(t, store.SaveConfig(ctx, []byte(`{"rules":[{"id":"x"}]}`)))

	latest, err = store.LatestConfig(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(latest), `"id":"x"`)
}
