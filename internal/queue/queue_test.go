package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestQueue connects to a real Redis instance when TEST_REDIS_URL is set,
// skipping otherwise — there is no in-process Redis fake in this module's
// dependency set.
func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis-backed queue test")
	}
	q, err := New(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestEnqueueDequeueRoundTrips(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := Job{JobID: "job-1", SpecDoc: map[string]any{"title": "demo"}}
	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.Dequeue(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "demo", got.SpecDoc["title"])
}

func TestDequeueTimesOutWithNoJob(t *testing.T) {
	q := newTestQueue(t)
	got, err := q.Dequeue(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}
