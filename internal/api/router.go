// Package api exposes a small operator-facing HTTP surface next to the bot:
// a health probe and read-only admin endpoints for dashboards and scripts.
package api

import (
	"github.com/go-chi/chi/v5"

	"surgebot/internal/config"
)

// ApiDependencies holds what the HTTP handlers need.
type ApiDependencies struct {
	Config *config.Config
}

// SetupRoutes mounts all routes on the router. The /api/admin subtree is
// protected by the X-API-Key header.
func SetupRoutes(r *chi.Mux, deps ApiDependencies) {
	r.Get("/health", HealthHandler)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(APIKeyMiddleware(deps.Config.APIKey))

		r.Get("/pending", PendingTransactionsHandler)
		r.Get("/stats", StatsHandler)
	})
}
