// Package tempdir manages the per-job scratch directories the pipeline
// stages read and write under. Grounded on the teacher's FFmpegService,
// which roots every intermediate file under a single tempDir and removes
// them one at a time via Cleanup; generalized here into a directory-scoped
// manager with deferred-retry deletion and a startup sweep, since the
// pipeline now produces many more intermediate files per job than the
// teacher's single render pass.
package tempdir

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Manager allocates and reclaims per-job scratch directories under a
// configured root.
type Manager struct {
	root       string
	prefix     string
	retryDelay time.Duration
	staleAfter time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetryDelay overrides the delay before a failed deletion is retried
// once, in the background.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

// WithStaleAfter overrides the age threshold Sweep uses to decide a leftover
// directory is abandoned.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) { m.staleAfter = d }
}

// New builds a Manager rooted at root, creating it if necessary. prefix
// names every allocated directory, e.g. "job-".
func New(root, prefix string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	m := &Manager{
		root:       root,
		prefix:     prefix,
		retryDelay: 30 * time.Second,
		staleAfter: time.Hour,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Allocate creates a new scoped directory and returns its path.
func (m *Manager) Allocate() (string, error) {
	dir := filepath.Join(m.root, m.prefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Release removes dir immediately; on failure it schedules one retry after
// the configured delay and logs if that retry also fails, rather than
// blocking the caller or leaking the failure silently.
func (m *Manager) Release(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("[tempdir] failed to remove %s: %v, retrying in %s", dir, err, m.retryDelay)
		time.AfterFunc(m.retryDelay, func() {
			if retryErr := os.RemoveAll(dir); retryErr != nil {
				log.Printf("[tempdir] retry failed to remove %s: %v", dir, retryErr)
			}
		})
	}
}

// Sweep removes every directory under root matching prefix whose
// modification time is older than staleAfter, reclaiming space left behind
// by crashed or killed jobs. Intended to run once at startup.
func (m *Manager) Sweep() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.staleAfter)
	for _, entry := range entries {
		if !entry.IsDir() || !hasPrefix(entry.Name(), m.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(m.root, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				log.Printf("[tempdir] sweep failed to remove stale dir %s: %v", path, err)
				continue
			}
			log.Printf("[tempdir] swept stale dir %s", path)
		}
	}
	return nil
}

func hasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}
