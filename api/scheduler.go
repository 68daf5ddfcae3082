/*
scheduler.go - Automated escalation sweep scheduler

PURPOSE:
  Periodically builds a portfolio snapshot (aging summary, cash forecast,
  tracked items), evaluates the configured escalation rules against it,
  and dispatches newly fired events to the notification gateway.

DESIGN:
  - Runs a background goroutine with configurable sweep interval
  - The evaluator is pure; this layer owns every side effect
  - Cross-sweep dedupe: an event is dispatched only when RecordEvent
    reports the (ruleId, referenceId) pair as new
  - Records sweep runs for audit and UI display

CONFIGURATION:
  - SweepInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  sweeper := NewEscalationSweeper(store, handler, gateway)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - finance/escalation.go: The pure evaluator
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - notify/gateway.go: Event delivery boundary
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/finance"
	"github.com/warp/treasury-engine/notify"
	"github.com/warp/treasury-engine/store/sqlite"
)

// Default forecast horizon fed into the sweep snapshot.
const sweepForecastHorizonDays = 30

// EscalationSweeper drives the periodic rule evaluation.
type EscalationSweeper struct {
	Store         *sqlite.Store
	Handler       *Handler
	Gateway       notify.Gateway
	SweepInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewEscalationSweeper creates a new sweeper.
func NewEscalationSweeper(store *sqlite.Store, handler *Handler, gateway notify.Gateway) *EscalationSweeper {
	return &EscalationSweeper{
		Store:         store,
		Handler:       handler,
		Gateway:       gateway,
		SweepInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweep loop.
func (es *EscalationSweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	es.ticker = time.NewTicker(es.SweepInterval)
	es.wg.Add(1)

	go es.run()

	log.Printf("[Sweeper] Started with sweep interval: %v", es.SweepInterval)
}

// Stop stops the sweep loop.
func (es *EscalationSweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (es *EscalationSweeper) run() {
	defer es.wg.Done()

	// Sweep immediately on start
	if _, err := es.RunOnce(context.Background()); err != nil {
		log.Printf("[Sweeper] Initial sweep failed: %v", err)
	}

	for {
		select {
		case <-es.ticker.C:
			if _, err := es.RunOnce(context.Background()); err != nil {
				log.Printf("[Sweeper] Sweep failed: %v", err)
			}
		case <-es.stop:
			return
		}
	}
}

// RunOnce performs a single sweep: snapshot, evaluate, dedupe, dispatch.
// Safe to call concurrently with the background loop; the escalation
// log's unique index makes double-dispatch impossible.
func (es *EscalationSweeper) RunOnce(ctx context.Context) (SweepResultDTO, error) {
	now := time.Now().UTC()
	run := sqlite.SweepRun{
		ID:        uuid.NewString(),
		StartedAt: now,
		Status:    "running",
	}
	if err := es.Store.SaveSweepRun(ctx, run); err != nil {
		return SweepResultDTO{}, err
	}

	result, err := es.sweep(ctx, now)
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.EventsEmitted = result.EventsEmitted
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		es.Store.SaveSweepRun(ctx, run)
		return SweepResultDTO{}, err
	}

	run.Status = "completed"
	if saveErr := es.Store.SaveSweepRun(ctx, run); saveErr != nil {
		log.Printf("[Sweeper] Failed to record run: %v", saveErr)
	}

	result.RunID = run.ID
	if result.EventsEmitted > 0 || result.Deduplicated > 0 {
		log.Printf("[Sweeper] Completed: %d evaluated, %d emitted, %d deduplicated",
			result.Evaluated, result.EventsEmitted, result.Deduplicated)
	}
	return result, nil
}

func (es *EscalationSweeper) sweep(ctx context.Context, now time.Time) (SweepResultDTO, error) {
	var result SweepResultDTO

	entries, err := es.Store.ListOpenEntries(ctx)
	if err != nil {
		return result, err
	}
	items, err := es.Store.ListItems(ctx)
	if err != nil {
		return result, err
	}

	cfg := es.Handler.Config()
	asOf := finance.DateOf(now)

	// The snapshot carries the derived views alongside the raw items so
	// rule evaluation and its audit trail share one consistent input.
	aging, err := finance.Classify(entries, asOf, cfg.Aging)
	if err != nil {
		return result, err
	}
	forecast, err := finance.Project(entries, decimal.Zero, asOf, sweepForecastHorizonDays)
	if err != nil {
		return result, err
	}

	snapshot := finance.PortfolioSnapshot{
		TakenAt:  now,
		Aging:    aging,
		Forecast: forecast,
		Items:    items,
	}

	events, err := finance.Evaluate(cfg.Rules, snapshot)
	if err != nil {
		return result, err
	}
	result.Evaluated = len(events)

	for _, ev := range events {
		recorded, err := es.Store.RecordEvent(ctx, uuid.NewString(), ev)
		if err != nil {
			return result, err
		}
		if !recorded {
			result.Deduplicated++
			continue
		}
		result.EventsEmitted++

		if err := es.Gateway.Dispatch(ctx, ev); err != nil {
			// The event stays on record; delivery failures are the
			// gateway's retry problem, not a reason to fail the sweep.
			log.Printf("[Sweeper] Dispatch failed for rule=%s ref=%s: %v",
				ev.RuleID, ev.ReferenceID, err)
		}
	}

	return result, nil
}
