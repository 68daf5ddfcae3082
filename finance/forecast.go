/*
forecast.go - Confidence-weighted cash projection

PURPOSE:
  Builds a day-by-day forecast of expected inflows and outflows over a
  horizon, from anticipated ledger entries plus a starting balance.
  This answers "what will the cash position look like?"

SEPARATION FROM AGING:
  Only entries due strictly AFTER asOf contribute. An entry already
  overdue belongs to the aging classifier's "is it late" view; including
  it here too would double-count the same receivable in both views. The
  exclusion is silent and documented - it is the one place the engine
  skips an entry without erroring.

CONFIDENCE WEIGHTING:
  expectedAmount = balance * confidence / 100. Confidence 0 contributes
  nothing; confidence can never inflate a balance above face value
  because values outside [0,100] are rejected, not clamped quietly.

DETERMINISM:
  Project called twice with identical inputs yields identical output.
  No randomness, no implicit "now" - asOf is always an explicit
  parameter. This is what lets a nightly run be re-executed for audit.

EXAMPLE:
  points, err := finance.Project(entries, startingBalance, asOf, 30)
  // points[0] is asOf+1; points[29] is asOf+30

SEE ALSO:
  - aging.go: The backward-looking counterpart
  - escalation.go: Consumes the ForecastPoint series
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FORECAST POINT - One calendar day in the projection horizon
// =============================================================================

// ForecastPoint is one day of the projection. NetFlow is
// ExpectedInflow - ExpectedOutflow; ProjectedBalance is the running
// balance after applying this day's net flow.
type ForecastPoint struct {
	Date             Date            `json:"date"`
	ExpectedInflow   decimal.Decimal `json:"expectedInflow"`
	ExpectedOutflow  decimal.Decimal `json:"expectedOutflow"`
	NetFlow          decimal.Decimal `json:"netFlow"`
	ProjectedBalance decimal.Decimal `json:"projectedBalance"`
}

// =============================================================================
// PROJECTION
// =============================================================================

// Project builds a forecast of length horizonDays starting the day after
// asOf. Pure and deterministic over its inputs.
//
// Contributing entries are those with a positive balance and a due date
// within (asOf, asOf+horizonDays]. Entries due on or before asOf are
// silently excluded (they are the aging classifier's domain). All
// entries are validated, including the confidence range, before any
// aggregation begins.
func Project(entries []LedgerEntry, startingBalance decimal.Decimal, asOf Date, horizonDays int) ([]ForecastPoint, error) {
	if horizonDays <= 0 {
		return nil, &InvalidHorizonError{HorizonDays: horizonDays}
	}
	if asOf.IsZero() {
		return nil, &InvalidEntryError{Field: "asOf", Reason: "missing"}
	}

	for _, e := range entries {
		if err := e.Validate(true); err != nil {
			return nil, err
		}
	}
	if _, err := validateUniformCurrency(entries); err != nil {
		return nil, err
	}

	// Sum expected amounts per day offset, split by direction.
	// Offset d in [1, horizonDays] corresponds to asOf+d.
	inflows := make([]decimal.Decimal, horizonDays+1)
	outflows := make([]decimal.Decimal, horizonDays+1)
	for i := range inflows {
		inflows[i] = decimal.Zero
		outflows[i] = decimal.Zero
	}

	for _, e := range entries {
		if !e.Balance().IsPositive() {
			continue // settled
		}
		d := DaysBetween(asOf, e.DueDate)
		if d <= 0 || d > horizonDays {
			continue // overdue or beyond the horizon
		}
		expected := e.ExpectedBalance()
		switch e.Direction {
		case Inflow:
			inflows[d] = inflows[d].Add(expected)
		case Outflow:
			outflows[d] = outflows[d].Add(expected)
		}
	}

	points := make([]ForecastPoint, horizonDays)
	running := startingBalance
	for d := 1; d <= horizonDays; d++ {
		net := inflows[d].Sub(outflows[d])
		running = running.Add(net)
		points[d-1] = ForecastPoint{
			Date:             asOf.AddDays(d),
			ExpectedInflow:   inflows[d],
			ExpectedOutflow:  outflows[d],
			NetFlow:          net,
			ProjectedBalance: running,
		}
	}
	return points, nil
}

// MinimumBalance returns the lowest projected balance in the series and
// the day it occurs on. Useful for liquidity alerts on top of the raw
// forecast. Returns false when the series is empty.
func MinimumBalance(points []ForecastPoint) (ForecastPoint, bool) {
	if len(points) == 0 {
		return ForecastPoint{}, false
	}
	min := points[0]
	for _, p := range points[1:] {
		if p.ProjectedBalance.LessThan(min.ProjectedBalance) {
			min = p
		}
	}
	return min, true
}
