package evaluate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the state of an evaluation job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one asynchronous evaluation.
type Job struct {
	mu sync.Mutex

	ID      string
	AgentID string

	status    JobStatus
	errMsg    string
	progress  Progress
	createdAt time.Time
	updatedAt time.Time

	questions []Question
	results   []Result
}

// Progress counts finished questions by outcome.
type Progress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(agentID string, questions []Question) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		status:    StatusQueued,
		progress:  Progress{Total: len(questions)},
		createdAt: now,
		updatedAt: now,
		questions: questions,
	}
}

func (j *Job) setStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.updatedAt = time.Now()
}

func (j *Job) fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusFailed
	j.errMsg = msg
	j.updatedAt = time.Now()
}

func (j *Job) recordResult(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case r.Status == StatusSkipped:
		j.progress.Skipped++
	case r.Failed():
		j.progress.Failed++
	default:
		j.progress.Answered++
	}
	j.updatedAt = time.Now()
}

func (j *Job) complete(results []Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = results
	j.status = StatusCompleted
	j.updatedAt = time.Now()
}

// Results returns the results once the job has completed.
func (j *Job) Results() ([]Result, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusCompleted {
		return nil, false
	}
	return j.results, true
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.updatedAt
}

// JobSnapshot is a JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	AgentID   string    `json:"agent_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:        j.ID,
		AgentID:   j.AgentID,
		Status:    j.status,
		Error:     j.errMsg,
		Progress:  j.progress,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
}

// JobStore is an in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
