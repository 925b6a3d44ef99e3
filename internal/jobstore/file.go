package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileStore persists jobs to a single JSON file, guarded by an exclusive
// file lock so multiple process instances don't corrupt it with concurrent
// writes. Used when no DATABASE_URL is configured.
type FileStore struct {
	path     string
	lock     *flock.Flock
	mu       sync.Mutex
	lockWait time.Duration
}

// NewFileStore opens (creating if necessary) a job store at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, err
		}
	}
	return &FileStore{
		path:     path,
		lock:     flock.New(path + ".lock"),
		lockWait: 5 * time.Second,
	}, nil
}

func (s *FileStore) withLock(fn func(jobs map[string]*Job) (map[string]*Job, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.lockWait)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring job store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring job store lock")
	}
	defer s.lock.Unlock()

	jobs, err := s.read()
	if err != nil {
		return err
	}
	updated, err := fn(jobs)
	if err != nil {
		return err
	}
	return s.write(updated)
}

func (s *FileStore) read() (map[string]*Job, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	jobs := map[string]*Job{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("parsing job store file: %w", err)
		}
	}
	return jobs, nil
}

func (s *FileStore) write(jobs map[string]*Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Create(ctx context.Context, job *Job) error {
	return s.withLock(func(jobs map[string]*Job) (map[string]*Job, error) {
		jobs[job.ID] = job
		return jobs, nil
	})
}

func (s *FileStore) Get(ctx context.Context, id string) (*Job, error) {
	var found *Job
	err := s.withLock(func(jobs map[string]*Job) (map[string]*Job, error) {
		job, ok := jobs[id]
		if !ok {
			return jobs, ErrNotFound
		}
		found = job
		return jobs, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *FileStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	return s.withLock(func(jobs map[string]*Job) (map[string]*Job, error) {
		job, ok := jobs[id]
		if !ok {
			return jobs, ErrNotFound
		}
		now := time.Now()
		job.Status = status
		switch status {
		case StatusRunning:
			job.StartedAt = &now
		case StatusSucceeded, StatusFailed:
			job.FinishedAt = &now
		}
		return jobs, nil
	})
}

func (s *FileStore) UpdateError(ctx context.Context, id string, message string) error {
	return s.withLock(func(jobs map[string]*Job) (map[string]*Job, error) {
		job, ok := jobs[id]
		if !ok {
			return jobs, ErrNotFound
		}
		now := time.Now()
		job.Status = StatusFailed
		job.ErrorMessage = &message
		job.FinishedAt = &now
		job.Attempts++
		return jobs, nil
	})
}

func (s *FileStore) UpdateOutput(ctx context.Context, id string, outputURL string) error {
	return s.withLock(func(jobs map[string]*Job) (map[string]*Job, error) {
		job, ok := jobs[id]
		if !ok {
			return jobs, ErrNotFound
		}
		job.OutputURL = &outputURL
		return jobs, nil
	})
}
