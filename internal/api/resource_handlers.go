package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// policySummary is one row of the exported policy list.
type policySummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Settings    int    `json:"settings"`
	Assignments int    `json:"assignments"`
}

// ListPolicies lists the exported legacy policies.
func (s *Server) ListPolicies(w http.ResponseWriter, r *http.Request) {
	set, err := s.Session.Store.LoadExport(r.Context())
	if err != nil {
		writeStoreError(w, err, "no export yet, run export first")
		return
	}
	// Ensure we return [] not null for empty results
	out := make([]policySummary, 0, len(set.Policies))
	for _, p := range set.Policies {
		out = append(out, policySummary{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Settings:    len(p.Settings),
			Assignments: len(p.Assignments),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPolicy returns one exported legacy policy with its settings.
func (s *Server) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, ok := s.exportedPolicy(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// exportedPolicy loads the export and looks up a policy, writing the error
// response itself when it cannot.
func (s *Server) exportedPolicy(w http.ResponseWriter, r *http.Request, id string) (models.LegacyPolicy, bool) {
	set, err := s.Session.Store.LoadExport(r.Context())
	if err != nil {
		writeStoreError(w, err, "no export yet, run export first")
		return models.LegacyPolicy{}, false
	}
	p, ok := set.Policy(id)
	if !ok {
		writeError(w, http.StatusNotFound, "policy not found")
		return models.LegacyPolicy{}, false
	}
	return p, true
}
