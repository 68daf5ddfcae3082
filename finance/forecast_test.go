package finance_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/finance"
)

// anticipated builds an entry due the given number of days after the
// as-of date, with an explicit confidence.
func anticipated(id string, dueInDays int, amount int64, conf int, dir finance.Direction) finance.LedgerEntry {
	return finance.LedgerEntry{
		ID:         finance.EntryID(id),
		EntityID:   "cust-1",
		DueDate:    asOf2026Mar15().AddDays(dueInDays),
		Amount:     money(amount),
		Confidence: confidence(conf),
		Direction:  dir,
	}
}

// =============================================================================
// CONFIDENCE WEIGHTING
// =============================================================================

func TestProject_ConfidenceWeighting(t *testing.T) {
	// GIVEN: Starting balance 1,000,000; one inflow due tomorrow,
	//        amount 500,000 at confidence 80
	// WHEN: Projecting over any horizon covering tomorrow
	// THEN: Day-1 expectedInflow = 400,000, projectedBalance = 1,400,000

	entries := []finance.LedgerEntry{anticipated("e-1", 1, 500000, 80, finance.Inflow)}

	points, err := finance.Project(entries, money(1000000), asOf2026Mar15(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 points, got %d", len(points))
	}

	day1 := points[0]
	if !day1.ExpectedInflow.Equal(money(400000)) {
		t.Errorf("expected day-1 inflow 400000, got %v", day1.ExpectedInflow)
	}
	if !day1.ProjectedBalance.Equal(money(1400000)) {
		t.Errorf("expected day-1 balance 1400000, got %v", day1.ProjectedBalance)
	}

	// Remaining days carry the balance forward unchanged.
	if !points[6].ProjectedBalance.Equal(money(1400000)) {
		t.Errorf("expected day-7 balance 1400000, got %v", points[6].ProjectedBalance)
	}
}

func TestProject_ZeroConfidence_ContributesNothing(t *testing.T) {
	entries := []finance.LedgerEntry{anticipated("e-1", 2, 1000, 0, finance.Inflow)}

	points, err := finance.Project(entries, money(500), asOf2026Mar15(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range points {
		if !p.ExpectedInflow.IsZero() {
			t.Errorf("confidence 0 entry should contribute nothing, got %v on %s", p.ExpectedInflow, p.Date)
		}
		if !p.ProjectedBalance.Equal(money(500)) {
			t.Errorf("balance should stay at 500, got %v", p.ProjectedBalance)
		}
	}
}

func TestProject_DefaultConfidence_Is100(t *testing.T) {
	// GIVEN: An entry with no confidence set
	// THEN: The full balance is expected
	entry := anticipated("e-1", 1, 1000, 0, finance.Inflow)
	entry.Confidence = nil

	points, err := finance.Project([]finance.LedgerEntry{entry}, decimal.Zero, asOf2026Mar15(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !points[0].ExpectedInflow.Equal(money(1000)) {
		t.Errorf("expected full 1000 at default confidence, got %v", points[0].ExpectedInflow)
	}
}

func TestProject_ConfidenceOutOfRange_Rejected(t *testing.T) {
	// Confidence can never inflate a balance above face value: values
	// outside [0,100] are rejected, not clamped.
	for _, conf := range []int{-1, 101, 250} {
		entries := []finance.LedgerEntry{anticipated("e-1", 1, 1000, conf, finance.Inflow)}
		_, err := finance.Project(entries, decimal.Zero, asOf2026Mar15(), 5)
		if !errors.Is(err, finance.ErrInvalidEntry) {
			t.Errorf("confidence %d: expected ErrInvalidEntry, got %v", conf, err)
		}
	}
}

func TestProject_ExpectedAmountWithinBalance(t *testing.T) {
	// expectedAmount stays in [0, balance] for every legal confidence.
	for conf := 0; conf <= 100; conf += 25 {
		entry := anticipated("e-1", 1, 1000, conf, finance.Inflow)
		entry.Settled = money(400) // balance 600

		points, err := finance.Project([]finance.LedgerEntry{entry}, decimal.Zero, asOf2026Mar15(), 1)
		if err != nil {
			t.Fatalf("confidence %d: unexpected error: %v", conf, err)
		}
		got := points[0].ExpectedInflow
		if got.IsNegative() || got.GreaterThan(money(600)) {
			t.Errorf("confidence %d: expected amount %v outside [0, 600]", conf, got)
		}
	}
}

// =============================================================================
// OVERDUE SEPARATION AND HORIZON BOUNDS
// =============================================================================

func TestProject_OverdueEntries_SilentlyExcluded(t *testing.T) {
	// GIVEN: One overdue entry, one due exactly on asOf, one in horizon
	// WHEN: Projecting
	// THEN: Only the future entry contributes - overdue money belongs to
	//       the aging view, and counting it here would double-count it

	entries := []finance.LedgerEntry{
		anticipated("overdue", -10, 1000, 100, finance.Inflow),
		anticipated("today", 0, 1000, 100, finance.Inflow),
		anticipated("future", 3, 1000, 100, finance.Inflow),
	}

	points, err := finance.Project(entries, decimal.Zero, asOf2026Mar15(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.ExpectedInflow)
	}
	if !total.Equal(money(1000)) {
		t.Errorf("expected only the future entry (1000), got total %v", total)
	}
	if !points[2].ExpectedInflow.Equal(money(1000)) {
		t.Errorf("expected the contribution on day 3, got %v", points[2].ExpectedInflow)
	}
}

func TestProject_EntryBeyondHorizon_Excluded(t *testing.T) {
	entries := []finance.LedgerEntry{anticipated("far", 31, 1000, 100, finance.Inflow)}

	points, err := finance.Project(entries, money(42), asOf2026Mar15(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !points[29].ProjectedBalance.Equal(money(42)) {
		t.Errorf("entry beyond horizon leaked into projection: %v", points[29].ProjectedBalance)
	}
}

func TestProject_EntryOnLastHorizonDay_Included(t *testing.T) {
	// The horizon window is (asOf, asOf+horizonDays]: inclusive at the end.
	entries := []finance.LedgerEntry{anticipated("edge", 30, 1000, 100, finance.Inflow)}

	points, err := finance.Project(entries, decimal.Zero, asOf2026Mar15(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !points[29].ExpectedInflow.Equal(money(1000)) {
		t.Errorf("entry on the last horizon day should be included, got %v", points[29].ExpectedInflow)
	}
}

func TestProject_InvalidHorizon_Rejected(t *testing.T) {
	for _, horizon := range []int{0, -5} {
		_, err := finance.Project(nil, decimal.Zero, asOf2026Mar15(), horizon)
		if !errors.Is(err, finance.ErrInvalidHorizon) {
			t.Errorf("horizon %d: expected ErrInvalidHorizon, got %v", horizon, err)
		}
	}
}

// =============================================================================
// NETTING AND RUNNING BALANCE
// =============================================================================

func TestProject_InflowsAndOutflowsNetPerDay(t *testing.T) {
	// GIVEN: An inflow of 300 and an outflow of 100 due the same day
	// THEN: netFlow 200, and the running balance accumulates day by day

	entries := []finance.LedgerEntry{
		anticipated("in", 2, 300, 100, finance.Inflow),
		anticipated("out", 2, 100, 100, finance.Outflow),
		anticipated("out2", 4, 50, 100, finance.Outflow),
	}

	points, err := finance.Project(entries, money(1000), asOf2026Mar15(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day2 := points[1]
	if !day2.NetFlow.Equal(money(200)) {
		t.Errorf("expected day-2 netFlow 200, got %v", day2.NetFlow)
	}
	if !day2.ProjectedBalance.Equal(money(1200)) {
		t.Errorf("expected day-2 balance 1200, got %v", day2.ProjectedBalance)
	}
	if !points[4].ProjectedBalance.Equal(money(1150)) {
		t.Errorf("expected day-5 balance 1150, got %v", points[4].ProjectedBalance)
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestProject_Deterministic(t *testing.T) {
	// Calling project twice with identical inputs yields identical output.
	entries := []finance.LedgerEntry{
		anticipated("e-1", 1, 500000, 80, finance.Inflow),
		anticipated("e-2", 3, 125000, 55, finance.Outflow),
		anticipated("e-3", 3, 99999, 100, finance.Inflow),
	}

	first, err := finance.Project(entries, money(1000000), asOf2026Mar15(), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := finance.Project(entries, money(1000000), asOf2026Mar15(), 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two identical projections differ")
	}
}

func TestMinimumBalance(t *testing.T) {
	entries := []finance.LedgerEntry{
		anticipated("out", 2, 800, 100, finance.Outflow),
		anticipated("in", 4, 1000, 100, finance.Inflow),
	}

	points, err := finance.Project(entries, money(500), asOf2026Mar15(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	min, ok := finance.MinimumBalance(points)
	if !ok {
		t.Fatal("expected a minimum point")
	}
	if !min.ProjectedBalance.Equal(money(-300)) {
		t.Errorf("expected minimum -300, got %v", min.ProjectedBalance)
	}
	if !min.Date.Equal(asOf2026Mar15().AddDays(2)) {
		t.Errorf("expected minimum on day 2, got %s", min.Date)
	}
}
