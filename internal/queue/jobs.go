package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// Job is the externally visible state of an asynchronous synthesis.
type Job struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Audio     []byte    `json:"-"`
}

// JobStore keeps job state in redis hashes; finished audio lives under a
// sibling key so status reads stay small.
type JobStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewJobStore(rdb *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStore{rdb: rdb, ttl: ttl}
}

func jobKey(id string) string   { return "tts:job:" + id }
func audioKey(id string) string { return "tts:job:" + id + ":audio" }

func (s *JobStore) Create(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{
		"status":     string(StatusQueued),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{"status": string(StatusProcessing), "error": ""})
}

func (s *JobStore) Complete(ctx context.Context, id string, audio []byte) error {
	if err := s.rdb.Set(ctx, audioKey(id), audio, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job audio %s: %w", id, err)
	}
	return s.update(ctx, id, map[string]any{"status": string(StatusDone)})
}

func (s *JobStore) Fail(ctx context.Context, id string, cause error) error {
	return s.update(ctx, id, map[string]any{"status": string(StatusFailed), "error": cause.Error()})
}

func (s *JobStore) update(ctx context.Context, id string, fields map[string]any) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.Expire(ctx, jobKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	job := &Job{
		ID:     id,
		Status: JobStatus(fields["status"]),
		Error:  fields["error"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		job.CreatedAt = ts
	}

	if job.Status == StatusDone {
		audio, err := s.rdb.Get(ctx, audioKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get job audio %s: %w", id, err)
		}
		job.Audio = audio
	}

	return job, nil
}
