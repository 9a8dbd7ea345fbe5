package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ttsserver/internal/cache"
	"github.com/nikhilbhutani/ttsserver/internal/config"
	"github.com/nikhilbhutani/ttsserver/internal/queue"
	"github.com/nikhilbhutani/ttsserver/internal/queue/workers"
	"github.com/nikhilbhutani/ttsserver/internal/telemetry"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	concurrency := flag.Int("concurrency", 2, "number of synthesis tasks processed in parallel")
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if !cfg.Redis.Enabled() {
		slog.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	load, err := tts.NewLoader(cfg.TTS)
	if err != nil {
		slog.Error("failed to configure tts backend", "error", err)
		os.Exit(1)
	}
	load = tts.WithTracing(tts.WithCache(load, cache.NewRedis(rdb), cfg.Cache.TTL))

	handle := tts.NewHandle()
	if err := handle.Load(ctx, load); err != nil {
		slog.Error("failed to load TTS model", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: *concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	synth := workers.NewSynthesizeWorker(handle, queue.NewJobStore(rdb, 0), cfg.TTS.SynthesisTimeout)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeSynthesize, synth.ProcessTask)

	slog.Info("starting worker", "concurrency", *concurrency, "backend", cfg.TTS.Backend, "model", cfg.TTS.Model)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
