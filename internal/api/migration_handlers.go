package api

import (
	"net/http"
)

// GetSuggestions returns the suggestions of the last map run.
func (s *Server) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	sugs, err := s.Session.Store.LoadSuggestions(r.Context())
	if err != nil {
		writeStoreError(w, err, "no suggestions yet, run map first")
		return
	}
	writeJSON(w, http.StatusOK, sugs)
}

// GetManifest returns the manifest of ?run_id=, or of the latest run.
func (s *Server) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.Session.Store.LoadManifest(r.Context(), r.URL.Query().Get("run_id"))
	if err != nil {
		writeStoreError(w, err, "manifest not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"manifest": m,
		"summary":  m.Summary(),
	})
}

func (s *Server) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	report, err := s.Session.Store.LoadDuplicates(r.Context())
	if err != nil {
		writeStoreError(w, err, "no duplicates report yet, run duplicates first")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
