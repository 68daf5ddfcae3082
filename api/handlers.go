/*
handlers.go - HTTP API handlers for the treasury engine

PURPOSE:
  Exposes the obligations engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Entries:
    GET    /api/entries                    List entries (?open=true for outstanding)
    POST   /api/entries                    Register an obligation
    GET    /api/entries/{id}               Get one entry
    GET    /api/entries/{id}/settlements   Settlement history
    POST   /api/entries/{id}/settlements   Record a settlement

  Reports:
    GET    /api/reports/aging              Aging classification
    GET    /api/reports/forecast           Cash projection

  Items:
    GET    /api/items                      List tracked items
    POST   /api/items                      Register/refresh a tracked item
    POST   /api/items/{id}/resolve         Mark an item resolved

  Config:
    GET    /api/config                     Current configuration document
    PUT    /api/config                     Replace configuration
    POST   /api/config/reload              Re-read config from the database

  Escalations:
    POST   /api/escalations/sweep          Trigger a sweep now
    GET    /api/escalations/events         Recorded escalation events
    GET    /api/escalations/runs           Sweep run history

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, classifier, projector, evaluator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (idempotency, over-settlement)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: The background sweep behind /api/escalations/sweep
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/factory"
	"github.com/warp/treasury-engine/finance"
	"github.com/warp/treasury-engine/notify"
	"github.com/warp/treasury-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Ledger  *finance.SettlementLedger
	Gateway notify.Gateway
	Sweeper *EscalationSweeper

	// Cached engine configuration, hot-reloadable.
	mu     sync.RWMutex
	config *factory.EngineConfig
}

// NewHandler creates a new handler with the given store and gateway.
func NewHandler(store *sqlite.Store, gateway notify.Gateway) *Handler {
	return &Handler{
		Store:   store,
		Ledger:  finance.NewSettlementLedger(store),
		Gateway: gateway,
	}
}

// LoadConfig reads the latest configuration from the database into the
// cache, seeding the default document on first run.
func (h *Handler) LoadConfig(ctx context.Context) error {
	data, err := h.Store.LatestConfig(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		data = factory.DefaultConfigJSON()
		if err := h.Store.SaveConfig(ctx, data); err != nil {
			return err
		}
	}
	cfg, err := factory.ParseConfig(data)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.config = cfg
	h.mu.Unlock()
	return nil
}

// Config returns the cached engine configuration.
func (h *Handler) Config() *factory.EngineConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// CreateEntry registers a new obligation.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dueDate, err := finance.ParseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dueDate format (use YYYY-MM-DD)", err)
		return
	}

	entry := finance.LedgerEntry{
		ID:          finance.EntryID(req.ID),
		EntityID:    finance.EntityID(req.EntityID),
		ReferenceID: finance.ReferenceID(req.ReferenceID),
		Currency:    req.Currency,
		DueDate:     dueDate,
		Amount:      decimal.NewFromFloat(req.Amount),
		Settled:     decimal.NewFromFloat(req.Settled),
		Confidence:  req.Confidence,
		Direction:   finance.Direction(req.Direction),
	}

	if err := h.Ledger.CreateEntry(r.Context(), entry); err != nil {
		writeDomainError(w, "Failed to create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// ListEntries returns entries; ?open=true limits to outstanding ones.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		entries []finance.LedgerEntry
		err     error
	)
	if r.URL.Query().Get("open") == "true" {
		entries, err = h.Store.ListOpenEntries(ctx)
	} else {
		entries, err = h.Store.ListEntries(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEntry returns a single entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := finance.EntryID(chi.URLParam(r, "id"))

	entry, err := h.Store.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get entry", err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "Entry not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// RecordSettlement applies a payment against an entry.
func (h *Handler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	entryID := finance.EntryID(chi.URLParam(r, "id"))

	var req RecordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at, err := finance.ParseDate(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settlement date (use YYYY-MM-DD)", err)
		return
	}

	settlement := finance.Settlement{
		ID:             uuid.NewString(),
		EntryID:        entryID,
		At:             at,
		Amount:         decimal.NewFromFloat(req.Amount),
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := h.Ledger.RecordSettlement(r.Context(), settlement); err != nil {
		writeDomainError(w, "Failed to record settlement", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSettlementDTO(settlement))
}

// ListSettlements returns the settlement history for an entry.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	entryID := finance.EntryID(chi.URLParam(r, "id"))

	history, err := h.Ledger.History(r.Context(), entryID)
	if err != nil {
		writeDomainError(w, "Failed to load settlement history", err)
		return
	}

	dtos := make([]SettlementDTO, len(history))
	for i, s := range history {
		dtos[i] = toSettlementDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// AgingReport classifies outstanding entries into aging buckets.
// GET /api/reports/aging?asOf=2026-03-15&direction=inflow
func (h *Handler) AgingReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asOf date (use YYYY-MM-DD)", err)
		return
	}

	entries, err := h.Store.ListOpenEntries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	if dir := r.URL.Query().Get("direction"); dir != "" {
		entries = filterDirection(entries, finance.Direction(dir))
	}

	summary, err := finance.Classify(entries, asOf, h.Config().Aging)
	if err != nil {
		writeDomainError(w, "Failed to classify entries", err)
		return
	}

	report := AgingReportDTO{
		AsOf:      summary.AsOf.String(),
		Currency:  summary.Currency,
		Portfolio: toEntitySummaryDTO(&summary.Portfolio, summary.Buckets),
	}
	for _, b := range summary.Buckets {
		report.Buckets = append(report.Buckets, BucketDTO(b))
	}
	for _, es := range summary.SortedEntities() {
		report.Entities = append(report.Entities, toEntitySummaryDTO(es, summary.Buckets))
	}

	writeJSON(w, http.StatusOK, report)
}

// ForecastReport projects expected cash flow over a horizon.
// GET /api/reports/forecast?asOf=2026-03-15&horizonDays=30&startingBalance=1000000
func (h *Handler) ForecastReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asOf date (use YYYY-MM-DD)", err)
		return
	}

	horizonDays := 30
	if v := r.URL.Query().Get("horizonDays"); v != "" {
		horizonDays, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid horizonDays", err)
			return
		}
	}

	startingBalance := decimal.Zero
	if v := r.URL.Query().Get("startingBalance"); v != "" {
		startingBalance, err = decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startingBalance", err)
			return
		}
	}

	entries, err := h.Store.ListOpenEntries(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	points, err := finance.Project(entries, startingBalance, asOf, horizonDays)
	if err != nil {
		writeDomainError(w, "Failed to project cash flow", err)
		return
	}

	report := ForecastReportDTO{
		AsOf:            asOf.String(),
		HorizonDays:     horizonDays,
		StartingBalance: startingBalance.String(),
		Points:          make([]ForecastPointDTO, len(points)),
	}
	for i, p := range points {
		report.Points[i] = toForecastPointDTO(p)
	}
	if min, ok := finance.MinimumBalance(points); ok {
		dto := toForecastPointDTO(min)
		report.MinimumBalance = &dto
	}

	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// SaveItem registers or refreshes a tracked item.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req SaveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ReferenceID == "" || req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "referenceId and entityId are required", nil)
		return
	}

	item := finance.ItemMeta{
		ReferenceID:       finance.ReferenceID(req.ReferenceID),
		EntityID:          finance.EntityID(req.EntityID),
		OutstandingAmount: decimal.NewFromFloat(req.OutstandingAmount),
		Resolved:          req.Resolved,
	}
	var err error
	if item.ApprovalRequestedAt, err = parseOptionalTime(req.ApprovalRequestedAt); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid approvalRequestedAt (use RFC3339)", err)
		return
	}
	if item.LastResponseAt, err = parseOptionalTime(req.LastResponseAt); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lastResponseAt (use RFC3339)", err)
		return
	}
	if req.ExpiresAt != nil {
		d, err := finance.ParseDate(*req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expiresAt (use YYYY-MM-DD)", err)
			return
		}
		item.ExpiresAt = &d
	}

	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// ListItems returns all tracked items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResolveItem marks a tracked item resolved.
func (h *Handler) ResolveItem(w http.ResponseWriter, r *http.Request) {
	ref := finance.ReferenceID(chi.URLParam(r, "id"))

	if err := h.Store.ResolveItem(r.Context(), ref); err != nil {
		writeDomainError(w, "Failed to resolve item", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved", "referenceId": string(ref)})
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetConfig returns the current configuration document.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	data, err := h.Store.LatestConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load config", err)
		return
	}
	if data == nil {
		data = factory.DefaultConfigJSON()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UpdateConfig validates, stores, and activates a new configuration.
// The document is parsed BEFORE it is saved: a typo'd rule never reaches
// the sweep.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := factory.ParseConfig(raw)
	if err != nil {
		writeDomainError(w, "Invalid configuration", err)
		return
	}

	if err := h.Store.SaveConfig(r.Context(), raw); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save config", err)
		return
	}

	h.mu.Lock()
	h.config = cfg
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "updated",
		"rules":  len(cfg.Rules),
	})
}

// ReloadConfig re-reads the stored configuration into the cache.
func (h *Handler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.LoadConfig(r.Context()); err != nil {
		writeDomainError(w, "Failed to reload config", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"rules":  len(h.Config().Rules),
	})
}

// =============================================================================
// ESCALATION HANDLERS
// =============================================================================

// TriggerSweep runs an escalation sweep immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "Sweeper not configured", nil)
		return
	}

	result, err := h.Sweeper.RunOnce(r.Context())
	if err != nil {
		writeDomainError(w, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListEvents returns recorded escalation events, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	events, err := h.Store.ListEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, rec := range events {
		dtos[i] = toEventDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListSweepRuns returns sweep run history, newest first.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	runs, err := h.Store.ListSweepRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	type runDTO struct {
		ID            string `json:"id"`
		StartedAt     string `json:"startedAt"`
		CompletedAt   string `json:"completedAt,omitempty"`
		Status        string `json:"status"`
		EventsEmitted int    `json:"eventsEmitted"`
		Error         string `json:"error,omitempty"`
	}

	dtos := make([]runDTO, 0, len(runs))
	for _, run := range runs {
		dto := runDTO{
			ID:            run.ID,
			StartedAt:     run.StartedAt.Format(time.RFC3339),
			Status:        run.Status,
			EventsEmitted: run.EventsEmitted,
			Error:         run.Error,
		}
		if run.CompletedAt != nil {
			dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps finance errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, finance.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// queryDate reads an ISO date query parameter, defaulting to today (UTC).
func queryDate(r *http.Request, key string) (finance.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return finance.DateOf(time.Now().UTC()), nil
	}
	return finance.ParseDate(v)
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func filterDirection(entries []finance.LedgerEntry, dir finance.Direction) []finance.LedgerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Direction == dir {
			out = append(out, e)
		}
	}
	return out
}
