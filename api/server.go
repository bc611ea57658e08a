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
  /api/cascade/*        Cascade compute and apply
  /api/odds             Draw-odds estimates
  /api/purge-risk       Forfeiture-timer scan
  /api/group/*          Party averaging
  /api/snapshot         World state
  /api/rules/*          Jurisdiction rule tables
  /api/alerts           Applied-alert audit trail

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		r.Route("/cascade", func(r chi.Router) {
			r.Post("/", h.ComputeCascade)
			r.Post("/apply", h.ApplyCascade)
		})

		r.Get("/odds", h.GetOdds)
		r.Get("/purge-risk", h.GetPurgeRisk)
		r.Post("/group/average", h.AverageGroup)

		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", h.GetSnapshot)
			r.Post("/", h.ReplaceSnapshot)
		})

		r.Get("/alerts", h.GetAlerts)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Get("/{code}", h.GetRule)
		})
	})

	// Minimal landing page listing the API surface.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Draw Cascade Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Draw Cascade Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li>POST /api/cascade - compute a cascade (dry run)</li>
<li>POST /api/cascade/apply - compute and apply</li>
<li><a href="/api/odds?jurisdiction=WY&points=4&required=8&quota=100">/api/odds</a> - draw-odds estimate</li>
<li><a href="/api/purge-risk">/api/purge-risk</a> - forfeiture-timer scan</li>
<li>POST /api/group/average - party averaging</li>
<li><a href="/api/snapshot">/api/snapshot</a> - world state</li>
<li><a href="/api/rules">/api/rules</a> - jurisdiction rules</li>
<li><a href="/api/alerts">/api/alerts</a> - applied alerts</li>
</ul>
</body>
</html>`))
	})

	return r
}
