package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is the db.Job-equivalent persistence backend, adapted from
// the teacher's internal/db/jobs.go CRUD functions onto the JobStore
// interface. Selected when DATABASE_URL is configured.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn and verifies the
// jobs table is reachable.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO video_jobs (id, status, attempts, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, job.ID, job.Status, job.Attempts, job.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	query := `
		SELECT id, status, attempts, started_at, finished_at, error_message, output_url, created_at
		FROM video_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.Attempts,
		&job.StartedAt, &job.FinishedAt, &job.ErrorMessage, &job.OutputURL, &job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	now := time.Now()
	query := `UPDATE video_jobs SET status = $1, started_at = $2 WHERE id = $3`
	if status == StatusSucceeded || status == StatusFailed {
		query = `UPDATE video_jobs SET status = $1, finished_at = $2 WHERE id = $3`
	}
	_, err := s.db.ExecContext(ctx, query, status, now, id)
	return err
}

func (s *PostgresStore) UpdateError(ctx context.Context, id string, message string) error {
	query := `
		UPDATE video_jobs
		SET status = $1, error_message = $2, finished_at = $3, attempts = attempts + 1
		WHERE id = $4
	`
	_, err := s.db.ExecContext(ctx, query, StatusFailed, message, time.Now(), id)
	return err
}

func (s *PostgresStore) UpdateOutput(ctx context.Context, id string, outputURL string) error {
	query := `UPDATE video_jobs SET output_url = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, outputURL, id)
	return err
}
