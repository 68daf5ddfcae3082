/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Entry creation and settlement over HTTP
- Aging and forecast reports
- Escalation sweep with cross-sweep dedupe
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/finance"
	"github.com/warp/treasury-engine/notify"
	"github.com/warp/treasury-engine/store/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gateway := notify.LogGateway{}
	handler := NewHandler(store, gateway)
	if err := handler.LoadConfig(context.Background()); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	sweeper := NewEscalationSweeper(store, handler, gateway)
	handler.Sweeper = sweeper

	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, handler, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// =============================================================================
// ENTRY AND SETTLEMENT FLOW
// =============================================================================

func TestCreateEntryAndSettle(t *testing.T) {
	// GIVEN: A registered obligation of 1000
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries", CreateEntryRequest{
		ID:        "inv-1",
		EntityID:  "cust-1",
		DueDate:   "2026-04-01",
		Amount:    1000,
		Direction: "inflow",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// WHEN: Settling 400
	resp = postJSON(t, srv.URL+"/api/entries/inv-1/settlements", RecordSettlementRequest{
		At:     "2026-04-05",
		Amount: 400,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// THEN: The entry shows balance 600
	getResp, err := http.Get(srv.URL + "/api/entries/inv-1")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var entry EntryDTO
	decodeBody(t, getResp, &entry)
	if entry.Balance != "600" {
		t.Errorf("Expected balance 600, got %s", entry.Balance)
	}
}

func TestCreateEntry_InvalidAmount_Returns400(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries", CreateEntryRequest{
		ID:        "inv-bad",
		EntityID:  "cust-1",
		DueDate:   "2026-04-01",
		Amount:    0,
		Direction: "inflow",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero amount, got %d", resp.StatusCode)
	}
}

func TestRecordSettlement_Duplicate_Returns409(t *testing.T) {
	// GIVEN: A settlement recorded with an idempotency key
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries", CreateEntryRequest{
		ID: "inv-1", EntityID: "cust-1", DueDate: "2026-04-01",
		Amount: 1000, Direction: "inflow",
	})
	resp.Body.Close()

	req := RecordSettlementRequest{At: "2026-04-05", Amount: 100, IdempotencyKey: "pay-42"}
	resp = postJSON(t, srv.URL+"/api/entries/inv-1/settlements", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// WHEN: Retrying with the same key
	resp = postJSON(t, srv.URL+"/api/entries/inv-1/settlements", req)
	defer resp.Body.Close()

	// THEN: Conflict, not a second settlement
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate key, got %d", resp.StatusCode)
	}
}

func TestRecordSettlement_UnknownEntry_Returns404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries/ghost/settlements", RecordSettlementRequest{
		At: "2026-04-05", Amount: 100,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAgingReport(t *testing.T) {
	// GIVEN: One entry 45 days overdue with 600 outstanding
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	err := store.SaveEntry(ctx, finance.LedgerEntry{
		ID:        "inv-1",
		EntityID:  "cust-1",
		DueDate:   finance.NewDate(2026, time.January, 29), // 45 days before asOf
		Amount:    decimal.NewFromInt(1000),
		Settled:   decimal.NewFromInt(400),
		Direction: finance.Inflow,
	})
	if err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/reports/aging?asOf=2026-03-15")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var report AgingReportDTO
	decodeBody(t, resp, &report)

	// THEN: 600 sits in the 31-60 bucket and totals reconcile
	if report.Portfolio.TotalOutstanding != "600" {
		t.Errorf("Expected total 600, got %s", report.Portfolio.TotalOutstanding)
	}
	if got := report.Portfolio.BucketTotals["days_31_60"]; got != "600" {
		t.Errorf("Expected 600 in days_31_60, got %s", got)
	}
}

func TestForecastReport(t *testing.T) {
	// GIVEN: 500000 at 80% confidence due tomorrow
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	confidence := 80
	err := store.SaveEntry(ctx, finance.LedgerEntry{
		ID:         "exp-1",
		EntityID:   "cust-1",
		DueDate:    finance.NewDate(2026, time.March, 16),
		Amount:     decimal.NewFromInt(500000),
		Confidence: &confidence,
		Direction:  finance.Inflow,
	})
	if err != nil {
		t.Fatalf("Failed to save entry: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/reports/forecast?asOf=2026-03-15&horizonDays=7&startingBalance=1000000")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var report ForecastReportDTO
	decodeBody(t, resp, &report)

	if len(report.Points) != 7 {
		t.Fatalf("Expected 7 points, got %d", len(report.Points))
	}
	if report.Points[0].ExpectedInflow != "400000" {
		t.Errorf("Expected day-1 inflow 400000, got %s", report.Points[0].ExpectedInflow)
	}
	if report.Points[0].ProjectedBalance != "1400000" {
		t.Errorf("Expected day-1 balance 1400000, got %s", report.Points[0].ProjectedBalance)
	}
}

func TestForecastReport_InvalidHorizon_Returns400(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reports/forecast?horizonDays=0")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero horizon, got %d", resp.StatusCode)
	}
}

// =============================================================================
// ESCALATION SWEEP
// =============================================================================

func TestSweep_DedupesAcrossRuns(t *testing.T) {
	// GIVEN: An item pending approval far past the default 24h rule
	srv, handler, store := newTestServer(t)
	ctx := context.Background()

	requested := time.Now().UTC().Add(-48 * time.Hour)
	err := store.SaveItem(ctx, finance.ItemMeta{
		ReferenceID:         "inv-100",
		EntityID:            "cust-1",
		OutstandingAmount:   decimal.NewFromInt(5000),
		ApprovalRequestedAt: &requested,
	})
	if err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}

	// WHEN: Sweeping twice
	first, err := handler.Sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("First sweep failed: %v", err)
	}
	second, err := handler.Sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}

	// THEN: The event is emitted once; the second sweep dedupes it
	if first.EventsEmitted != 1 {
		t.Errorf("Expected 1 event from first sweep, got %d", first.EventsEmitted)
	}
	if second.EventsEmitted != 0 || second.Deduplicated != 1 {
		t.Errorf("Expected second sweep to dedupe, got emitted=%d deduplicated=%d",
			second.EventsEmitted, second.Deduplicated)
	}

	// The event is visible over HTTP.
	resp, err := http.Get(srv.URL + "/api/escalations/events")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var events []EventDTO
	decodeBody(t, resp, &events)
	if len(events) != 1 {
		t.Fatalf("Expected 1 recorded event, got %d", len(events))
	}
	if events[0].RuleID != "approval-24h" || events[0].ReferenceID != "inv-100" {
		t.Errorf("Unexpected event: %+v", events[0])
	}
}

func TestSweep_ResolvedItemStopsFiring(t *testing.T) {
	// GIVEN: A qualifying item that gets resolved before the sweep
	_, handler, store := newTestServer(t)
	ctx := context.Background()

	requested := time.Now().UTC().Add(-48 * time.Hour)
	if err := store.SaveItem(ctx, finance.ItemMeta{
		ReferenceID:         "inv-200",
		EntityID:            "cust-2",
		OutstandingAmount:   decimal.NewFromInt(5000),
		ApprovalRequestedAt: &requested,
	}); err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}
	if err := store.ResolveItem(ctx, "inv-200"); err != nil {
		t.Fatalf("Failed to resolve item: %v", err)
	}

	result, err := handler.Sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.EventsEmitted != 0 {
		t.Errorf("Resolved item must not escalate, got %d events", result.EventsEmitted)
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestUpdateConfig_RejectsInvalidRule(t *testing.T) {
	// A typo'd trigger kind must never reach the sweep.
	srv, _, _ := newTestServer(t)

	body := map[string]any{
		"rules": []map[string]any{
			{
				"id":             "typo",
				"triggerKind":    "aproval_pending",
				"thresholdValue": 4,
				"thresholdUnit":  "hours",
				"escalateToTier": "manager",
				"channels":       []string{"email"},
			},
		},
	}
	data, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/config", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid rule, got %d", resp.StatusCode)
	}
}

func TestUpdateConfig_HotReloadsRules(t *testing.T) {
	// GIVEN: A replacement config with one high-value rule
	srv, handler, _ := newTestServer(t)

	body := map[string]any{
		"rules": []map[string]any{
			{
				"id":             "hv-1m",
				"triggerKind":    "high_value_pending",
				"thresholdValue": 1000000,
				"escalateToTier": "director",
				"channels":       []string{"email"},
			},
		},
	}
	data, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/config", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// THEN: The cached config now carries exactly that rule
	cfg := handler.Config()
	if len(cfg.Rules) != 1 || string(cfg.Rules[0].ID) != "hv-1m" {
		t.Errorf("Expected hot-reloaded single rule, got %+v", cfg.Rules)
	}
}

func TestListEntries_OpenFilter(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	for i, settled := range []int64{0, 1000} {
		if err := store.SaveEntry(ctx, finance.LedgerEntry{
			ID:        finance.EntryID(fmt.Sprintf("inv-%d", i)),
			EntityID:  "cust-1",
			DueDate:   finance.NewDate(2026, time.April, 1),
			Amount:    decimal.NewFromInt(1000),
			Settled:   decimal.NewFromInt(settled),
			Direction: finance.Inflow,
		}); err != nil {
			t.Fatalf("Failed to save entry: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/entries?open=true")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var entries []EntryDTO
	decodeBody(t, resp, &entries)
	if len(entries) != 1 || entries[0].ID != "inv-0" {
		t.Errorf("Expected only the open entry, got %+v", entries)
	}
}
