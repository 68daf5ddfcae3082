/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/entries/*       Obligation and settlement management
  /api/reports/*       Aging and forecast reports
  /api/items/*         Tracked items for escalation
  /api/config/*        Engine configuration
  /api/escalations/*   Sweeps, events, run history

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Entry and settlement routes
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Get("/{id}/settlements", h.ListSettlements)
			r.Post("/{id}/settlements", h.RecordSettlement)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/aging", h.AgingReport)
			r.Get("/forecast", h.ForecastReport)
		})

		// Tracked item routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.SaveItem)
			r.Post("/{id}/resolve", h.ResolveItem)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Put("/", h.UpdateConfig)
			r.Post("/reload", h.ReloadConfig)
		})

		// Escalation routes
		r.Route("/escalations", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
			r.Get("/events", h.ListEvents)
			r.Get("/runs", h.ListSweepRuns)
		})
	})

	return r
}
