/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the finance package, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/warp/treasury-engine/finance"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// CreateEntryRequest is the request to register an obligation.
type CreateEntryRequest struct {
	ID          string  `json:"id"`
	EntityID    string  `json:"entityId"`
	ReferenceID string  `json:"referenceId,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	DueDate     string  `json:"dueDate"` // ISO date
	Amount      float64 `json:"amount"`
	Settled     float64 `json:"receivedOrPaid"`
	Confidence  *int    `json:"confidence,omitempty"`
	Direction   string  `json:"direction"`
}

// EntryDTO represents a ledger entry in API responses.
type EntryDTO struct {
	ID          string  `json:"id"`
	EntityID    string  `json:"entityId"`
	ReferenceID string  `json:"referenceId,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	DueDate     string  `json:"dueDate"`
	Amount      string  `json:"amount"`
	Settled     string  `json:"receivedOrPaid"`
	Balance     string  `json:"balance"`
	Confidence  int     `json:"confidence"`
	Direction   string  `json:"direction"`
}

// =============================================================================
// SETTLEMENT TYPES
// =============================================================================

// RecordSettlementRequest applies a payment against an entry.
type RecordSettlementRequest struct {
	At             string  `json:"at"` // ISO date
	Amount         float64 `json:"amount"`
	Reference      string  `json:"reference,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
}

// SettlementDTO represents a recorded settlement.
type SettlementDTO struct {
	ID        string `json:"id"`
	EntryID   string `json:"entryId"`
	At        string `json:"at"`
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// AgingReportDTO is the aging classification response.
type AgingReportDTO struct {
	AsOf      string             `json:"asOf"`
	Currency  string             `json:"currency,omitempty"`
	Buckets   []BucketDTO        `json:"buckets"`
	Entities  []EntitySummaryDTO `json:"entities"`
	Portfolio EntitySummaryDTO   `json:"portfolio"`
}

// BucketDTO describes one aging window.
type BucketDTO struct {
	Label   string `json:"label"`
	MinDays int    `json:"minDays"`
	MaxDays int    `json:"maxDays"` // -1 for the unbounded terminal bucket
}

// EntitySummaryDTO holds the bucketed balances for one counterparty.
type EntitySummaryDTO struct {
	EntityID         string            `json:"entityId"`
	BucketTotals     map[string]string `json:"bucketTotals"`
	TotalOutstanding string            `json:"totalOutstanding"`
	RiskTier         string            `json:"riskTier"`
}

// ForecastReportDTO is the cash projection response.
type ForecastReportDTO struct {
	AsOf            string             `json:"asOf"`
	HorizonDays     int                `json:"horizonDays"`
	StartingBalance string             `json:"startingBalance"`
	Points          []ForecastPointDTO `json:"points"`
	MinimumBalance  *ForecastPointDTO  `json:"minimumBalance,omitempty"`
}

// ForecastPointDTO is one day of the projection.
type ForecastPointDTO struct {
	Date             string `json:"date"`
	ExpectedInflow   string `json:"expectedInflow"`
	ExpectedOutflow  string `json:"expectedOutflow"`
	NetFlow          string `json:"netFlow"`
	ProjectedBalance string `json:"projectedBalance"`
}

// =============================================================================
// ITEM TYPES
// =============================================================================

// SaveItemRequest registers or refreshes a tracked item.
type SaveItemRequest struct {
	ReferenceID         string  `json:"referenceId"`
	EntityID            string  `json:"entityId"`
	OutstandingAmount   float64 `json:"outstandingAmount"`
	Resolved            bool    `json:"resolved"`
	ApprovalRequestedAt *string `json:"approvalRequestedAt,omitempty"` // RFC3339
	LastResponseAt      *string `json:"lastResponseAt,omitempty"`      // RFC3339
	ExpiresAt           *string `json:"expiresAt,omitempty"`           // ISO date
}

// ItemDTO represents a tracked item.
type ItemDTO struct {
	ReferenceID         string  `json:"referenceId"`
	EntityID            string  `json:"entityId"`
	OutstandingAmount   string  `json:"outstandingAmount"`
	Resolved            bool    `json:"resolved"`
	ApprovalRequestedAt *string `json:"approvalRequestedAt,omitempty"`
	LastResponseAt      *string `json:"lastResponseAt,omitempty"`
	ExpiresAt           *string `json:"expiresAt,omitempty"`
}

// =============================================================================
// ESCALATION TYPES
// =============================================================================

// EventDTO represents a recorded escalation event.
type EventDTO struct {
	ID             string   `json:"id"`
	RuleID         string   `json:"ruleId"`
	EntityID       string   `json:"entityId"`
	ReferenceID    string   `json:"referenceId"`
	TriggeredAt    string   `json:"triggeredAt"`
	Channels       []string `json:"channels"`
	EscalateToTier string   `json:"escalateToTier"`
	ContextValue   string   `json:"contextValue"`
	ContextUnit    string   `json:"contextUnit"`
}

// SweepResultDTO is returned from a manual sweep trigger.
type SweepResultDTO struct {
	RunID         string `json:"runId"`
	Evaluated     int    `json:"evaluated"`
	EventsEmitted int    `json:"eventsEmitted"`
	Deduplicated  int    `json:"deduplicated"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEntryDTO(e finance.LedgerEntry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		EntityID:    string(e.EntityID),
		ReferenceID: string(e.ReferenceID),
		Currency:    e.Currency,
		DueDate:     e.DueDate.String(),
		Amount:      e.Amount.String(),
		Settled:     e.Settled.String(),
		Balance:     e.Balance().String(),
		Confidence:  e.ConfidenceValue(),
		Direction:   string(e.Direction),
	}
}

func toSettlementDTO(s finance.Settlement) SettlementDTO {
	return SettlementDTO{
		ID:        s.ID,
		EntryID:   string(s.EntryID),
		At:        s.At.String(),
		Amount:    s.Amount.String(),
		Reference: s.Reference,
	}
}

func toEntitySummaryDTO(es *finance.EntitySummary, buckets []finance.BucketDef) EntitySummaryDTO {
	totals := make(map[string]string, len(buckets))
	for i, b := range buckets {
		if i < len(es.BucketTotals) {
			totals[b.Label] = es.BucketTotals[i].String()
		}
	}
	return EntitySummaryDTO{
		EntityID:         string(es.EntityID),
		BucketTotals:     totals,
		TotalOutstanding: es.TotalOutstanding.String(),
		RiskTier:         string(es.RiskTier),
	}
}

func toForecastPointDTO(p finance.ForecastPoint) ForecastPointDTO {
	return ForecastPointDTO{
		Date:             p.Date.String(),
		ExpectedInflow:   p.ExpectedInflow.String(),
		ExpectedOutflow:  p.ExpectedOutflow.String(),
		NetFlow:          p.NetFlow.String(),
		ProjectedBalance: p.ProjectedBalance.String(),
	}
}

func toItemDTO(item finance.ItemMeta) ItemDTO {
	dto := ItemDTO{
		ReferenceID:       string(item.ReferenceID),
		EntityID:          string(item.EntityID),
		OutstandingAmount: item.OutstandingAmount.String(),
		Resolved:          item.Resolved,
	}
	if item.ApprovalRequestedAt != nil {
		s := item.ApprovalRequestedAt.Format(time.RFC3339)
		dto.ApprovalRequestedAt = &s
	}
	if item.LastResponseAt != nil {
		s := item.LastResponseAt.Format(time.RFC3339)
		dto.LastResponseAt = &s
	}
	if item.ExpiresAt != nil {
		s := item.ExpiresAt.String()
		dto.ExpiresAt = &s
	}
	return dto
}

func toEventDTO(rec finance.RecordedEvent) EventDTO {
	channels := make([]string, len(rec.Event.Channels))
	for i, c := range rec.Event.Channels {
		channels[i] = string(c)
	}
	return EventDTO{
		ID:             rec.ID,
		RuleID:         string(rec.Event.RuleID),
		EntityID:       string(rec.Event.EntityID),
		ReferenceID:    string(rec.Event.ReferenceID),
		TriggeredAt:    rec.Event.TriggeredAt.Format(time.RFC3339),
		Channels:       channels,
		EscalateToTier: rec.Event.EscalateToTier,
		ContextValue:   rec.Event.ContextSnapshot.Value.String(),
		ContextUnit:    rec.Event.ContextSnapshot.Unit,
	}
}
