package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// ListJobs lists jobs, newest first, optionally narrowed by ?type= and
// ?status=.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobType := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")

	out := make([]*models.Job, 0)
	for _, j := range s.Jobs.List() {
		if jobType != "" && j.Type != jobType {
			continue
		}
		if status != "" && j.State() != status {
			continue
		}
		out = append(out, j)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	job := s.Jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// CancelJob stops a running job. The remote call in flight completes and
// the run stops before the next one; a migrate run still saves its manifest.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	job := s.Jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Done() {
		writeError(w, http.StatusConflict, "job already "+job.State())
		return
	}
	job.Cancel()
	job.AppendLog("CANCELLED: " + job.Type + " stopped by user")
	if s.Log != nil {
		s.Log.Info("job cancelled", "job", job.ID, "type", job.Type)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": job.State()})
}
