package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rflorenc/catalog-migrator/internal/models"
)

// runFunc is one mode run. Its result becomes the job result.
type runFunc func(ctx context.Context, logger func(string)) (interface{}, error)

// startJob runs fn in the background as a job of jobType and replies with
// the job id.
func (s *Server) startJob(w http.ResponseWriter, jobType string, fn runFunc) {
	s.runJob(w, s.Jobs.Create(jobType), fn)
}

// runJob runs fn in the background under an already created job.
func (s *Server) runJob(w http.ResponseWriter, job *models.Job, fn runFunc) {
	jobType := job.Type
	logger := func(line string) {
		job.AppendLog(line)
		if s.Log != nil {
			s.Log.Debug(line, "job", job.ID, "type", jobType)
		}
	}

	go func() {
		result, err := fn(job.Context(), logger)
		switch {
		case err != nil && job.State() == "cancelled":
			logger("Stopped: " + err.Error())
		case err != nil:
			logger("ERROR: " + err.Error())
			job.Fail(err.Error())
			if s.Log != nil {
				s.Log.Error("job failed", "job", job.ID, "type", jobType, "error", err)
			}
		default:
			job.Complete(result)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// migrationRunning reports whether a migrate job is in progress. The
// mapping must not change while one is.
func (s *Server) migrationRunning() bool {
	return s.Jobs.Running("migrate")
}

// decodeOptional decodes a JSON body into v; an empty body leaves v as is.
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) RunExport(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, "export", func(ctx context.Context, logger func(string)) (interface{}, error) {
		set, err := s.Session.Export(ctx, logger)
		if err != nil {
			return nil, err
		}
		return map[string]int{"policies": len(set.Policies), "warnings": len(set.Warnings)}, nil
	})
}

func (s *Server) RunMap(w http.ResponseWriter, r *http.Request) {
	if s.migrationRunning() {
		writeError(w, http.StatusConflict, "a migration is running; the mapping cannot change until it finishes")
		return
	}
	s.startJob(w, "map", func(ctx context.Context, logger func(string)) (interface{}, error) {
		s.mappingMu.Lock()
		defer s.mappingMu.Unlock()
		return s.Session.Map(ctx, logger)
	})
}

// RunMigrate starts a migration. It previews unless the body says
// {"apply": true}.
func (s *Server) RunMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Apply bool `json:"apply"`
	}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	job, ok := s.Jobs.CreateExclusive("migrate")
	if !ok {
		writeError(w, http.StatusConflict, "a migration is already running")
		return
	}
	s.runJob(w, job, func(ctx context.Context, logger func(string)) (interface{}, error) {
		m, err := s.Session.Migrate(ctx, req.Apply, logger)
		if err != nil {
			return nil, err
		}
		return m.Summary(), nil
	})
}

func (s *Server) RunRollback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.startJob(w, "rollback", func(ctx context.Context, logger func(string)) (interface{}, error) {
		report, err := s.Session.Rollback(ctx, req.RunID, logger)
		if err != nil {
			return nil, err
		}
		return map[string]int{"deleted": report.Deleted, "failed": report.Failed}, nil
	})
}

func (s *Server) RunDuplicates(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, "duplicates", func(ctx context.Context, logger func(string)) (interface{}, error) {
		report, err := s.Session.Duplicates(ctx, logger)
		if err != nil {
			return nil, err
		}
		return report.Summary, nil
	})
}
