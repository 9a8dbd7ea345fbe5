package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ttsserver/internal/config"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

type Client struct {
	client *asynq.Client
	store  *JobStore
}

func NewClient(cfg config.RedisConfig, rdb *redis.Client) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
		store:  NewJobStore(rdb, 0),
	}
}

// RedisOpt converts the shared redis settings for asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Submit records a queued job and enqueues the synthesis task. The job id
// doubles as the asynq task id.
func (c *Client) Submit(ctx context.Context, req tts.Request) (string, error) {
	id := uuid.NewString()

	if err := c.store.Create(ctx, id); err != nil {
		return "", err
	}

	payload := SynthesizePayload{JobID: id, Request: req}
	if err := c.enqueue(ctx, TypeSynthesize, payload, asynq.TaskID(id), asynq.MaxRetry(2), asynq.Timeout(5*time.Minute)); err != nil {
		_ = c.store.Fail(ctx, id, err)
		return "", err
	}
	return id, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Job, error) {
	return c.store.Get(ctx, id)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
