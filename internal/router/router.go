// Package router sets up all HTTP routes and middleware chains for the
// category API. Read endpoints are public; administrative operations live
// under /api/admin.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taxonomy/internal/handlers"
	"taxonomy/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(category *handlers.Category, admin *handlers.Admin) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Health check — no rate limiting.
	r.Get("/health", healthHandler)

	// Mutations get a tighter rate limit than reads.
	readLimiter := middleware.NewRateLimiter(300, time.Minute)
	writeLimiter := middleware.NewRateLimiter(60, time.Minute)

	r.Route("/api/categories", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(readLimiter.Middleware)
			r.Get("/", category.List)
			r.Get("/tree", category.Tree)
			r.Get("/statistics", category.Statistics)
			r.Get("/{id}", category.Get)
			r.Get("/{id}/breadcrumbs", category.Breadcrumbs)
			r.Get("/{id}/descendants", category.Descendants)
		})

		r.Group(func(r chi.Router) {
			r.Use(writeLimiter.Middleware)
			r.Post("/", category.Create)
			r.Put("/reorder", category.Reorder)
			r.Put("/batch/status", category.BatchStatus)
			r.Delete("/batch", category.BatchDelete)
			r.Put("/{id}", category.Update)
			r.Put("/{id}/move", category.Move)
			r.Delete("/{id}", category.Delete)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(writeLimiter.Middleware)
		r.Post("/cache/warmup", admin.WarmupCache)
		r.Post("/paths/backfill", admin.BackfillPaths)
		r.Post("/tree/generate", admin.GenerateTree)
	})

	return r
}

// healthHandler responds 200 for load balancer health checks.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
