package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/ttsserver/internal/queue"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

// ResultStore receives job state transitions.
type ResultStore interface {
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, audio []byte) error
	Fail(ctx context.Context, id string, cause error) error
}

type SynthesizeWorker struct {
	handle  *tts.Handle
	store   ResultStore
	timeout time.Duration

	// lastAttempt reports whether asynq will not retry the task again.
	lastAttempt func(ctx context.Context) bool
}

// NewSynthesizeWorker bounds each synthesis by timeout; zero disables it.
func NewSynthesizeWorker(handle *tts.Handle, store ResultStore, timeout time.Duration) *SynthesizeWorker {
	return &SynthesizeWorker{
		handle:      handle,
		store:       store,
		timeout:     timeout,
		lastAttempt: isLastAttempt,
	}
}

// isLastAttempt treats a context without asynq retry metadata as final.
func isLastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

func (w *SynthesizeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SynthesizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := w.store.MarkProcessing(ctx, payload.JobID); err != nil {
		return err
	}

	engine, err := w.handle.Engine()
	if err != nil {
		return w.fail(ctx, payload.JobID, err, false)
	}

	synthCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := engine.Synthesize(synthCtx, payload.Request)
	if err != nil {
		return w.fail(ctx, payload.JobID, err, tts.IsInvalidInput(err))
	}

	if err := w.store.Complete(ctx, payload.JobID, res.Audio); err != nil {
		return err
	}

	slog.Info("synthesis job completed",
		"job_id", payload.JobID,
		"engine", res.Engine,
		"audio_bytes", len(res.Audio),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail marks the job failed once no retry will follow. Permanent failures
// are not retried by asynq.
func (w *SynthesizeWorker) fail(ctx context.Context, id string, cause error, permanent bool) error {
	final := permanent || w.lastAttempt(ctx)
	slog.Warn("synthesis job failed", "job_id", id, "error", cause, "permanent", permanent, "final", final)

	if final {
		if err := w.store.Fail(ctx, id, cause); err != nil {
			slog.Error("record job failure", "job_id", id, "error", err)
		}
	}
	if permanent {
		return fmt.Errorf("%w: %w", cause, asynq.SkipRetry)
	}
	return cause
}
