package jobstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreCreateAndGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	job := NewJob()
	require.NoError(t, store.Create(context.Background(), job))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, StatusQueued, got.Status)
}

func TestFileStoreGetMissingReturnsErrNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreUpdateStatusSetsTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	job := NewJob()
	require.NoError(t, store.Create(context.Background(), job))
	require.NoError(t, store.UpdateStatus(context.Background(), job.ID, StatusRunning))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, store.UpdateStatus(context.Background(), job.ID, StatusSucceeded))
	got, err = store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.FinishedAt)
}

func TestFileStoreUpdateErrorIncrementsAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	job := NewJob()
	require.NoError(t, store.Create(context.Background(), job))
	require.NoError(t, store.UpdateError(context.Background(), job.ID, "boom"))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
	assert.Equal(t, 1, got.Attempts)
}

func TestFileStoreUpdateOutputSetsURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	job := NewJob()
	require.NoError(t, store.Create(context.Background(), job))
	require.NoError(t, store.UpdateOutput(context.Background(), job.ID, "https://cdn/video.mp4"))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OutputURL)
	assert.Equal(t, "https://cdn/video.mp4", *got.OutputURL)
}
