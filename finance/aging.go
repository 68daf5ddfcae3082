/*
aging.go - Aging classification of outstanding obligations

PURPOSE:
  Buckets ledger entries into time windows relative to an as-of date and
  produces per-entity and portfolio aggregates. This answers "how late is
  the money?" - the receivables and payables aging views are both this
  one computation with a different direction filter.

KEY INSIGHT:
  Bucket boundaries are CONFIGURATION, not constants. The classic
  30/60/90 split is only the default; the boundaries travel with the
  AgingConfig so every caller shares one definition instead of
  re-deriving bucket logic per screen.

BUCKET POLICY:
  Age is computed in whole days: asOf - dueDate. Boundaries are
  inclusive on both ends per bucket (0-30, 31-60, 61-90, >90) so there
  is no overlap or gap. An entry not yet due has age <= 0 and lands in
  the first bucket - undue amounts still count toward total outstanding.

RECONCILIATION INVARIANT:
  For every grouping level, sum(bucket totals) == totalOutstanding
  exactly, to the smallest currency unit. No entry is double-counted or
  dropped. Settled entries (balance zero) are excluded before bucketing.

PURITY:
  Classify is a pure function over its inputs. The escalation evaluator
  relies on this to re-run classification deterministically for audit.

EXAMPLE:
  summary, err := finance.Classify(entries, asOf, finance.DefaultAgingConfig())
  if err != nil { ... }
  high := summary.Entities["cust-042"].RiskTier

SEE ALSO:
  - forecast.go: The forward-looking counterpart (future cash)
  - escalation.go: Consumes AgingSummary via PortfolioSnapshot
*/
package finance

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGING CONFIG - Boundaries and risk thresholds, externally supplied
// =============================================================================

// AgingConfig externalizes what the source pages hardcoded inline: bucket
// boundaries and the risk-tier mapping.
type AgingConfig struct {
	// Boundaries are ascending inclusive upper bounds in days. [30,60,90]
	// yields four buckets: 0-30, 31-60, 61-90, over 90.
	Boundaries []int

	// RiskTiers map the fraction of an entity's balance sitting in the
	// terminal bucket to a tier. Evaluated from the highest MinFraction
	// down; the first threshold at or below the fraction wins.
	RiskTiers []RiskThreshold
}

// RiskThreshold assigns a tier when the over-terminal-boundary fraction
// of an entity's balance reaches MinFraction (0..1).
type RiskThreshold struct {
	MinFraction decimal.Decimal
	Tier        RiskTier
}

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// DefaultAgingConfig returns the conventional 30/60/90 split with
// risk tiers at 10% (medium) and 20% (high) of balance past 90 days.
func DefaultAgingConfig() AgingConfig {
	return AgingConfig{
		Boundaries: []int{30, 60, 90},
		RiskTiers: []RiskThreshold{
			{MinFraction: decimal.NewFromFloat(0.20), Tier: RiskHigh},
			{MinFraction: decimal.NewFromFloat(0.10), Tier: RiskMedium},
		},
	}
}

// BucketDef describes one derived aging window.
type BucketDef struct {
	Label   string `json:"label"`
	MinDays int    `json:"minDays"`
	// MaxDays < 0 means unbounded (the terminal bucket).
	MaxDays int `json:"maxDays"`
}

// Buckets derives the bucket definitions from the configured boundaries.
// len(Boundaries) boundaries produce len(Boundaries)+1 buckets.
func (c AgingConfig) Buckets() []BucketDef {
	defs := make([]BucketDef, 0, len(c.Boundaries)+1)
	min := 0
	for _, upper := range c.Boundaries {
		defs = append(defs, BucketDef{Label: bucketLabel(min, upper), MinDays: min, MaxDays: upper})
		min = upper + 1
	}
	defs = append(defs, BucketDef{Label: bucketLabel(min, -1), MinDays: min, MaxDays: -1})
	return defs
}

func bucketLabel(min, max int) string {
	if min == 0 {
		return "current"
	}
	if max < 0 {
		return "over_" + strconv.Itoa(min-1)
	}
	return "days_" + strconv.Itoa(min) + "_" + strconv.Itoa(max)
}

// BucketFor returns the index of the bucket containing the given age.
// Negative ages (not yet due) map to the first bucket.
func (c AgingConfig) BucketFor(ageDays int) int {
	if ageDays < 0 {
		ageDays = 0
	}
	for i, upper := range c.Boundaries {
		if ageDays <= upper {
			return i
		}
	}
	return len(c.Boundaries)
}

// tierFor maps an over-terminal fraction to a risk tier.
func (c AgingConfig) tierFor(fraction decimal.Decimal) RiskTier {
	best := RiskLow
	bestMin := decimal.NewFromInt(-1)
	for _, t := range c.RiskTiers {
		if fraction.GreaterThanOrEqual(t.MinFraction) && t.MinFraction.GreaterThan(bestMin) {
			best = t.Tier
			bestMin = t.MinFraction
		}
	}
	return best
}

// validate rejects a config whose boundaries are not strictly ascending
// positive values.
func (c AgingConfig) validate() error {
	if len(c.Boundaries) == 0 {
		return &InvalidRuleError{RuleID: "aging-config", Reason: "no bucket boundaries"}
	}
	prev := 0
	for _, b := range c.Boundaries {
		if b <= prev {
			return &InvalidRuleError{RuleID: "aging-config", Reason: "boundaries must be strictly ascending and positive"}
		}
		prev = b
	}
	return nil
}

// =============================================================================
// AGING SUMMARY - Per-entity and portfolio aggregates
// =============================================================================

// EntitySummary holds bucketed balances for one counterparty.
// BucketTotals is parallel to the config's Buckets().
type EntitySummary struct {
	EntityID         EntityID          `json:"entityId"`
	BucketTotals     []decimal.Decimal `json:"bucketTotals"`
	TotalOutstanding decimal.Decimal   `json:"totalOutstanding"`
	RiskTier         RiskTier          `json:"riskTier"`
}

// BucketTotal returns the balance in the bucket with the given label,
// or zero if the label is unknown.
func (s *EntitySummary) BucketTotal(buckets []BucketDef, label string) decimal.Decimal {
	for i, b := range buckets {
		if b.Label == label && i < len(s.BucketTotals) {
			return s.BucketTotals[i]
		}
	}
	return decimal.Zero
}

// AgingSummary is the result of one classification call.
type AgingSummary struct {
	AsOf     Date        `json:"asOf"`
	Currency string      `json:"currency,omitempty"`
	Buckets  []BucketDef `json:"buckets"`

	Entities  map[EntityID]*EntitySummary `json:"entities"`
	Portfolio EntitySummary               `json:"portfolio"`
}

// SortedEntities returns the per-entity summaries ordered by entity id,
// for deterministic rendering and serialization.
func (s *AgingSummary) SortedEntities() []*EntitySummary {
	out := make([]*EntitySummary, 0, len(s.Entities))
	for _, e := range s.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify buckets entries by age relative to asOf and aggregates per
// entity and portfolio-wide. Pure: no side effects, no implicit clock.
//
// All entries are validated before any aggregation begins; the first
// invalid entry aborts the whole call (all-or-nothing, never a silently
// short total). Settled entries are excluded. Confidence is ignored here.
func Classify(entries []LedgerEntry, asOf Date, cfg AgingConfig) (*AgingSummary, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		return nil, &InvalidEntryError{Field: "asOf", Reason: "missing"}
	}

	// Validate everything up front.
	for _, e := range entries {
		if err := e.Validate(false); err != nil {
			return nil, err
		}
	}
	currency, err := validateUniformCurrency(entries)
	if err != nil {
		return nil, err
	}

	buckets := cfg.Buckets()
	summary := &AgingSummary{
		AsOf:     asOf,
		Currency: currency,
		Buckets:  buckets,
		Entities: make(map[EntityID]*EntitySummary),
		Portfolio: EntitySummary{
			BucketTotals:     zeroTotals(len(buckets)),
			TotalOutstanding: decimal.Zero,
		},
	}

	for _, e := range entries {
		balance := e.Balance()
		if !balance.IsPositive() {
			continue // settled
		}

		age := DaysBetween(e.DueDate, asOf)
		idx := cfg.BucketFor(age)

		es, ok := summary.Entities[e.EntityID]
		if !ok {
			es = &EntitySummary{
				EntityID:         e.EntityID,
				BucketTotals:     zeroTotals(len(buckets)),
				TotalOutstanding: decimal.Zero,
			}
			summary.Entities[e.EntityID] = es
		}

		es.BucketTotals[idx] = es.BucketTotals[idx].Add(balance)
		es.TotalOutstanding = es.TotalOutstanding.Add(balance)
		summary.Portfolio.BucketTotals[idx] = summary.Portfolio.BucketTotals[idx].Add(balance)
		summary.Portfolio.TotalOutstanding = summary.Portfolio.TotalOutstanding.Add(balance)
	}

	// Derive risk tiers from the terminal-bucket fraction.
	terminal := len(buckets) - 1
	for _, es := range summary.Entities {
		es.RiskTier = riskTier(cfg, es, terminal)
	}
	summary.Portfolio.RiskTier = riskTier(cfg, &summary.Portfolio, terminal)

	return summary, nil
}

func riskTier(cfg AgingConfig, es *EntitySummary, terminal int) RiskTier {
	if !es.TotalOutstanding.IsPositive() {
		return RiskLow
	}
	fraction := es.BucketTotals[terminal].Div(es.TotalOutstanding)
	return cfg.tierFor(fraction)
}

func zeroTotals(n int) []decimal.Decimal {
	totals := make([]decimal.Decimal, n)
	for i := range totals {
		totals[i] = decimal.Zero
	}
	return totals
}
