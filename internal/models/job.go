package models

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job represents an async run of one workflow mode (export, map, migrate,
// rollback, duplicates) started from the HTTP surface.
type Job struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`   // "export", "map", "migrate", "rollback", "duplicates"
	Status     string      `json:"status"` // "running", "completed", "failed", "cancelled"
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Output     []string    `json:"output"`
	Result     interface{} `json:"result,omitempty"`

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// Context is cancelled when the job is cancelled. Runs check it before
// issuing each remote call.
func (j *Job) Context() context.Context {
	return j.ctx
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// MarshalJSON encodes a consistent snapshot of the job while it runs.
func (j *Job) MarshalJSON() ([]byte, error) {
	type view struct {
		ID         string      `json:"id"`
		Type       string      `json:"type"`
		Status     string      `json:"status"`
		StartedAt  time.Time   `json:"started_at"`
		FinishedAt *time.Time  `json:"finished_at,omitempty"`
		Error      string      `json:"error,omitempty"`
		Output     []string    `json:"output"`
		Result     interface{} `json:"result,omitempty"`
	}
	j.mu.Lock()
	v := view{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Output:     append([]string{}, j.Output...),
		Result:     j.Result,
	}
	j.mu.Unlock()
	return json.Marshal(v)
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// State returns the current status.
func (j *Job) State() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Done reports whether the job has reached a terminal status.
func (j *Job) Done() bool {
	s := j.State()
	return s == "completed" || s == "failed" || s == "cancelled"
}

// Complete marks the job as completed with an optional result summary.
func (j *Job) Complete(result interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != "running" {
		return
	}
	j.Status = "completed"
	j.Result = result
	now := time.Now()
	j.FinishedAt = &now
	j.cancel()
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != "running" {
		return
	}
	j.Status = "failed"
	j.Error = err
	now := time.Now()
	j.FinishedAt = &now
	j.cancel()
}

// Cancel stops the job. The in-flight remote call finishes; no new ones start.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != "running" {
		return
	}
	j.Status = "cancelled"
	now := time.Now()
	j.FinishedAt = &now
	j.cancel()
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(jobType)
}

// CreateExclusive adds a new running job of jobType unless one is already
// running. The check and the insert happen under one lock.
func (s *JobStore) CreateExclusive(jobType string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Type == jobType && !j.Done() {
			return nil, false
		}
	}
	return s.create(jobType), true
}

// Running reports whether a job of jobType has not finished.
func (s *JobStore) Running(jobType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.Type == jobType && !j.Done() {
			return true
		}
	}
	return false
}

func (s *JobStore) create(jobType string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    "running",
		StartedAt: time.Now(),
		Output:    []string{},
		ctx:       ctx,
		cancel:    cancel,
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
