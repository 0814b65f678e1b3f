package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/catalog-migrator/internal/mapping"
	"github.com/rflorenc/catalog-migrator/internal/models"
	"github.com/rflorenc/catalog-migrator/internal/store"
)

// loadMapping returns the persisted mapping, or an empty one.
func (s *Server) loadMapping(r *http.Request) (*mapping.Store, error) {
	table, err := s.Session.Store.LoadMapping(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		return mapping.NewStore(), nil
	}
	return table, err
}

func (s *Server) ListMapping(w http.ResponseWriter, r *http.Request) {
	table, err := s.loadMapping(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, table.Entries())
}

// PutMapping maps one legacy setting. The body names either a candidate
// (the payload is built from the exported setting) or an explicit payload.
func (s *Server) PutMapping(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "policyId")
	valueID := chi.URLParam(r, "settingValueId")

	var req struct {
		Candidate          *models.CandidateSetting `json:"candidate"`
		TargetDefinitionID string                   `json:"targetDefinitionId"`
		Payload            *models.SettingPayload   `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Candidate == nil && req.Payload == nil {
		writeError(w, http.StatusBadRequest, "candidate or payload is required")
		return
	}
	if s.migrationRunning() {
		writeError(w, http.StatusConflict, "a migration is running; the mapping cannot change until it finishes")
		return
	}

	s.mappingMu.Lock()
	defer s.mappingMu.Unlock()

	table, err := s.loadMapping(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var entry models.MappingEntry
	if req.Candidate != nil {
		p, ok := s.exportedPolicy(w, r, policyID)
		if !ok {
			return
		}
		var source *models.LegacySettingValue
		for i := range p.Settings {
			if p.Settings[i].ID == valueID {
				source = &p.Settings[i]
				break
			}
		}
		if source == nil {
			writeError(w, http.StatusNotFound, "setting not found in policy")
			return
		}
		entry, err = table.Choose(policyID, *source, *req.Candidate)
	} else {
		entry = models.MappingEntry{
			SourcePolicyID:       policyID,
			SourceSettingValueID: valueID,
			TargetDefinitionID:   req.TargetDefinitionID,
			Payload:              req.Payload,
			Origin:               mapping.OriginManual,
		}
		err = table.Upsert(entry)
		entry, _ = table.Get(entry.Key())
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.Session.Store.SaveMapping(r.Context(), table); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	key := models.MappingKey{
		PolicyID:       chi.URLParam(r, "policyId"),
		SettingValueID: chi.URLParam(r, "settingValueId"),
	}
	if s.migrationRunning() {
		writeError(w, http.StatusConflict, "a migration is running; the mapping cannot change until it finishes")
		return
	}

	s.mappingMu.Lock()
	defer s.mappingMu.Unlock()

	table, err := s.loadMapping(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !table.Remove(key) {
		writeError(w, http.StatusNotFound, "mapping entry not found")
		return
	}
	if err := s.Session.Store.SaveMapping(r.Context(), table); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchDefinitions runs a manual Settings Catalog search for ?q=.
func (s *Server) SearchDefinitions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	found, strategy := s.Matcher.Search(r.Context(), q)
	if found == nil {
		found = []models.CandidateSetting{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":      q,
		"strategy":   strategy,
		"candidates": found,
	})
}
