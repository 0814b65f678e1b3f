package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rflorenc/catalog-migrator/internal/matcher"
	"github.com/rflorenc/catalog-migrator/internal/migration"
	"github.com/rflorenc/catalog-migrator/internal/models"
)

// Pinger checks that the tenant is reachable with the configured credentials.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds shared state for all API handlers.
type Server struct {
	Jobs    *models.JobStore
	Session *migration.Session
	Graph   Pinger
	// Matcher serves manual searches during curation. Its search cache lives
	// as long as the server.
	Matcher *matcher.Matcher
	Log     *slog.Logger

	// mappingMu serializes read-modify-write of the persisted mapping.
	mappingMu sync.Mutex
}

// NewRouter builds the chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/connection", s.TestConnection)

		// Modes (async)
		r.Post("/export", s.RunExport)
		r.Post("/map", s.RunMap)
		r.Post("/migrate", s.RunMigrate)
		r.Post("/rollback", s.RunRollback)
		r.Post("/duplicates", s.RunDuplicates)

		// Artifacts
		r.Get("/policies", s.ListPolicies)
		r.Get("/policies/{id}", s.GetPolicy)
		r.Get("/suggestions", s.GetSuggestions)
		r.Get("/manifest", s.GetManifest)
		r.Get("/duplicates", s.GetDuplicates)

		// Curation
		r.Get("/mapping", s.ListMapping)
		r.Put("/mapping/{policyId}/{settingValueId}", s.PutMapping)
		r.Delete("/mapping/{policyId}/{settingValueId}", s.DeleteMapping)
		r.Get("/search", s.SearchDefinitions)

		// Jobs
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
		r.Post("/jobs/{id}/cancel", s.CancelJob)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/jobs/{id}/logs", s.StreamJobLogs)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
