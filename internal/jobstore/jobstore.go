// Package jobstore tracks the lifecycle of submitted video-assembly jobs.
// The status fields and state machine are grounded on the teacher's
// models.Job / db.UpdateJobStatus / db.UpdateJobError (internal/db/jobs.go),
// generalized from a per-clip render job into a whole-video assembly job and
// exposed behind one JobStore interface so either backend can serve the
// same HTTP handlers.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status mirrors the teacher's JobStatus enum.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a job ID has no record.
var ErrNotFound = errors.New("job not found")

// Job is one video-assembly request's tracked state.
type Job struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	OutputURL    *string    `json:"output_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// JobStore persists job records across process restarts, backed either by a
// local JSON file or Postgres depending on configuration.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateError(ctx context.Context, id string, message string) error
	UpdateOutput(ctx context.Context, id string, outputURL string) error
}

// NewJob builds a fresh queued job with a generated ID.
func NewJob() *Job {
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}
