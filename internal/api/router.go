// Package api wires the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crewplan/crewplan/internal/api/handlers"
	"github.com/crewplan/crewplan/internal/api/middleware"
	"github.com/crewplan/crewplan/internal/config"
)

// NewRouter builds the full route tree with middleware.
func NewRouter(h *handlers.Handlers, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.OrgExtractor)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Org"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAPIKeyAuth(cfg.Server.APIKeys)
	r.Use(auth.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"` + cfg.Server.Version + `"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/wizard", func(r chi.Router) {
			r.Post("/command", h.Command)
			r.Post("/execute", h.Execute)
			r.Get("/insights", h.Insights)
			r.Post("/advise", h.Advise)
			r.Delete("/conversations/{conversationID}", h.ClearConversation)
		})

		r.Get("/users", h.SearchUsers)
		r.Get("/users/{userID}/availability", h.UserAvailability)
		r.Get("/users/{userID}/allocations", h.UserAllocations)

		r.Get("/projects", h.SearchProjects)
		r.Get("/projects/{projectID}/status", h.ProjectStatus)
	})

	return r
}
