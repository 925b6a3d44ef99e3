// Package queue implements the Redis-backed work queue that decouples job
// submission (httpapi.CreateVideo) from pipeline execution
// (orchestrate.Assembler's worker pool). Grounded on the teacher's
// internal/queue/queue.go (RPush/BLPop against go-redis/redis/v8),
// collapsed from three job types (generate_plan/process_clip/render_final)
// down to the single render_video job this pipeline runs end to end.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// QueueRenderVideo is the one list key every job is pushed onto.
const QueueRenderVideo = "queue:render_video"

// Job is one queued video-assembly request: the job store's ID plus the
// specification document as submitted; validation runs as the pipeline's
// first stage after the job is dequeued.
type Job struct {
	JobID     string         `json:"job_id"`
	SpecDoc   map[string]any `json:"spec_doc"`
	CreatedAt time.Time      `json:"created_at"`
}

// Queue wraps a single Redis list used as a FIFO work queue.
type Queue struct {
	client *redis.Client
}

// New connects to Redis at redisURL. An empty redisURL is not an error here;
// callers that want queue-free inline execution should simply not call New.
func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// Close releases the underlying Redis connection pool.
func (q *Queue) Close() error {
	return q.client.Close()
}

// Enqueue pushes job onto the render_video queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	job.CreatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	return q.client.RPush(ctx, QueueRenderVideo, data).Err()
}

// Dequeue blocks up to timeout for the next job, returning (nil, nil) if
// none arrived in that window.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueRenderVideo).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis BLPOP response shape")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	return &job, nil
}

// Length reports the number of jobs currently waiting.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueRenderVideo).Result()
}
