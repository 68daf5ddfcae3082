/*
escalation.go - Declarative threshold rules and their evaluation

PURPOSE:
  Evaluates a set of externally supplied escalation rules against a
  portfolio snapshot (aging summary, forecast series, per-item metadata)
  and produces notification directives: which rule fired, for which
  item, over which channels, escalated to which tier.

EVALUATION MODEL:
  Rules are evaluated independently and ALL qualifying rules fire. There
  is no first-match-wins: single-escalation semantics must be expressed
  as mutually exclusive rules, never inferred here.

PURITY AND DEDUPLICATION:
  Given the same snapshot the evaluator returns the same events, in the
  same order. It keeps no notification history; deduplicating repeat
  firings across sweep cycles by (ruleId, referenceId) is the caller's
  job (see api/scheduler.go).

FAIL FAST:
  A rule with a negative threshold, an empty channel set, or an unknown
  trigger kind aborts the whole call with InvalidRuleError. A silently
  ignored typo in rule configuration would mean missed escalations,
  which is worse than a visible failure.

EXAMPLE:
  events, err := finance.Evaluate(rules, snapshot)
  for _, ev := range events {
      gateway.Dispatch(ctx, ev)
  }

SEE ALSO:
  - aging.go, forecast.go: Produce the snapshot inputs
  - factory/config.go: Parses rules from JSON configuration
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ESCALATION RULE - Externally supplied, read-only configuration
// =============================================================================

type TriggerKind string

const (
	// ApprovalPending: elapsed time since approval was requested exceeds
	// the threshold and the item is unresolved.
	ApprovalPending TriggerKind = "approval_pending"

	// ResponseOverdue: elapsed time since the last counterparty response
	// exceeds the threshold and the item is unresolved.
	ResponseOverdue TriggerKind = "response_overdue"

	// HighValuePending: outstanding amount exceeds the threshold (read as
	// a monetary value) and the item is unresolved.
	HighValuePending TriggerKind = "high_value_pending"

	// ExpiryApproaching: 0 <= days until expiry <= threshold. Already
	// expired items are terminal and are not re-escalated by this rule.
	ExpiryApproaching TriggerKind = "expiry_approaching"
)

type ThresholdUnit string

const (
	UnitHours ThresholdUnit = "hours"
	UnitDays  ThresholdUnit = "days"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
)

// EscalationRule is one declarative threshold policy. For time-based
// triggers ThresholdValue is measured in ThresholdUnit; for
// HighValuePending it is a monetary amount and the unit is ignored.
type EscalationRule struct {
	ID             RuleID          `json:"id"`
	TriggerKind    TriggerKind     `json:"triggerKind"`
	ThresholdValue decimal.Decimal `json:"thresholdValue"`
	ThresholdUnit  ThresholdUnit   `json:"thresholdUnit,omitempty"`
	EscalateToTier string          `json:"escalateToTier"`
	Channels       []Channel       `json:"channels"`
	Active         bool            `json:"active"`
}

// Validate rejects malformed rules. Inactive rules are still validated:
// a broken rule should be visible before someone flips it on.
func (r EscalationRule) Validate() error {
	if r.ThresholdValue.IsNegative() {
		return &InvalidRuleError{RuleID: r.ID, Reason: "thresholdValue must not be negative"}
	}
	if len(r.Channels) == 0 {
		return &InvalidRuleError{RuleID: r.ID, Reason: "channels must not be empty"}
	}
	switch r.TriggerKind {
	case ApprovalPending, ResponseOverdue:
		if r.ThresholdUnit != UnitHours && r.ThresholdUnit != UnitDays {
			return &InvalidRuleError{RuleID: r.ID, Reason: "thresholdUnit must be hours or days"}
		}
	case HighValuePending, ExpiryApproaching:
		// unit unused (monetary) or fixed to days
	default:
		return &InvalidRuleError{RuleID: r.ID, Reason: "unknown triggerKind " + string(r.TriggerKind)}
	}
	return nil
}

// =============================================================================
// PORTFOLIO SNAPSHOT - Everything a sweep evaluates against
// =============================================================================

// ItemMeta is per-item metadata the rules inspect: an invoice awaiting
// approval, a quote nearing expiry, a deal gone quiet.
type ItemMeta struct {
	ReferenceID ReferenceID `json:"referenceId"`
	EntityID    EntityID    `json:"entityId"`

	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	Resolved          bool            `json:"resolved"`

	ApprovalRequestedAt *time.Time `json:"approvalRequestedAt,omitempty"`
	LastResponseAt      *time.Time `json:"lastResponseAt,omitempty"`
	ExpiresAt           *Date      `json:"expiresAt,omitempty"`
}

// PortfolioSnapshot bundles the latest aging summary, forecast series,
// and item metadata. TakenAt is the explicit clock for elapsed-time
// triggers - the evaluator never reads time.Now.
type PortfolioSnapshot struct {
	TakenAt  time.Time       `json:"takenAt"`
	Aging    *AgingSummary   `json:"aging,omitempty"`
	Forecast []ForecastPoint `json:"forecast,omitempty"`
	Items    []ItemMeta      `json:"items"`
}

// =============================================================================
// ESCALATION EVENT - Directive emitted toward the dispatch gateway
// =============================================================================

// ContextValue is the measured value that crossed the threshold, kept
// alongside its unit so the notification can explain itself.
type ContextValue struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// EscalationEvent says THAT somebody must be notified and to whom - the
// dispatch gateway decides how. Events carry no generated identifiers so
// the evaluator stays deterministic; persistence assigns IDs.
type EscalationEvent struct {
	RuleID          RuleID       `json:"ruleId"`
	EntityID        EntityID     `json:"entityId"`
	ReferenceID     ReferenceID  `json:"referenceId"`
	TriggeredAt     time.Time    `json:"triggeredAt"`
	Channels        []Channel    `json:"channels"`
	EscalateToTier  string       `json:"escalateToTier"`
	ContextSnapshot ContextValue `json:"contextSnapshot"`
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluate runs every rule against the snapshot and returns all
// qualifying events. Pure: same snapshot, same events. Rules are all
// validated before any evaluation begins; inactive rules are skipped
// entirely and never produce events.
func Evaluate(rules []EscalationRule, snapshot PortfolioSnapshot) ([]EscalationEvent, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if snapshot.TakenAt.IsZero() {
		return nil, &InvalidRuleError{RuleID: "snapshot", Reason: "takenAt must be set"}
	}

	var events []EscalationEvent
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		for _, item := range snapshot.Items {
			measured, fires := ruleFires(rule, item, snapshot.TakenAt)
			if !fires {
				continue
			}
			events = append(events, EscalationEvent{
				RuleID:          rule.ID,
				EntityID:        item.EntityID,
				ReferenceID:     item.ReferenceID,
				TriggeredAt:     snapshot.TakenAt,
				Channels:        append([]Channel(nil), rule.Channels...),
				EscalateToTier:  rule.EscalateToTier,
				ContextSnapshot: measured,
			})
		}
	}
	return events, nil
}

// ruleFires decides whether one rule qualifies against one item and
// returns the measured value that crossed (or failed to cross) the
// threshold.
func ruleFires(rule EscalationRule, item ItemMeta, takenAt time.Time) (ContextValue, bool) {
	switch rule.TriggerKind {
	case ApprovalPending:
		return elapsedExceeds(rule, item.ApprovalRequestedAt, item.Resolved, takenAt)

	case ResponseOverdue:
		return elapsedExceeds(rule, item.LastResponseAt, item.Resolved, takenAt)

	case HighValuePending:
		measured := ContextValue{Value: item.OutstandingAmount, Unit: "amount"}
		if item.Resolved {
			return measured, false
		}
		return measured, item.OutstandingAmount.GreaterThan(rule.ThresholdValue)

	case ExpiryApproaching:
		if item.ExpiresAt == nil {
			return ContextValue{}, false
		}
		daysUntil := DaysBetween(DateOf(takenAt), *item.ExpiresAt)
		measured := ContextValue{Value: decimal.NewFromInt(int64(daysUntil)), Unit: "days"}
		if daysUntil < 0 {
			return measured, false // expired: terminal, not re-escalated
		}
		return measured, decimal.NewFromInt(int64(daysUntil)).LessThanOrEqual(rule.ThresholdValue)
	}
	return ContextValue{}, false
}

// elapsedExceeds measures time since a reference timestamp in the rule's
// unit and compares it against the threshold.
func elapsedExceeds(rule EscalationRule, since *time.Time, resolved bool, takenAt time.Time) (ContextValue, bool) {
	if since == nil || resolved {
		return ContextValue{}, false
	}
	elapsed := takenAt.Sub(*since)
	if elapsed < 0 {
		return ContextValue{Value: decimal.Zero, Unit: string(rule.ThresholdUnit)}, false
	}

	var measured decimal.Decimal
	switch rule.ThresholdUnit {
	case UnitDays:
		measured = decimal.NewFromFloat(elapsed.Hours() / 24)
	default: // hours
		measured = decimal.NewFromFloat(elapsed.Hours())
	}
	return ContextValue{Value: measured, Unit: string(rule.ThresholdUnit)}, measured.GreaterThan(rule.ThresholdValue)
}
