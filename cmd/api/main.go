package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ttsserver/internal/api"
	"github.com/nikhilbhutani/ttsserver/internal/api/handlers"
	"github.com/nikhilbhutani/ttsserver/internal/cache"
	"github.com/nikhilbhutani/ttsserver/internal/config"
	"github.com/nikhilbhutani/ttsserver/internal/database"
	"github.com/nikhilbhutani/ttsserver/internal/history"
	"github.com/nikhilbhutani/ttsserver/internal/queue"
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

	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	checks := map[string]handlers.Check{}
	deps := api.Deps{Handle: tts.NewHandle(), Checks: checks}

	// Redis backs the audio cache and async jobs (optional)
	var audioCache tts.AudioCache
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, running without jobs", "error", err)
		} else {
			audioCache = cache.NewRedis(rdb)

			jobs := queue.NewClient(cfg.Redis, rdb)
			defer jobs.Close()
			deps.Jobs = jobs

			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}
	if audioCache == nil {
		mem := cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxEntries)
		defer mem.Stop()
		audioCache = mem
	}

	// Database stores synthesis history (optional)
	if cfg.Database.Enabled() {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without history", "error", err)
		} else {
			defer db.Close()

			if err := database.RunMigrations(ctx, db, database.Migrations(cfg.Database.MigrationsPath)); err != nil {
				slog.Warn("migrations failed", "error", err)
			}

			deps.History = history.NewStore(db)
			checks["database"] = db.Ping
		}
	}

	load, err := tts.NewLoader(cfg.TTS)
	if err != nil {
		slog.Error("failed to configure tts backend", "error", err)
		os.Exit(1)
	}
	load = tts.WithTracing(tts.WithCache(load, audioCache, cfg.Cache.TTL))

	slog.Info("loading TTS model", "backend", cfg.TTS.Backend, "model", cfg.TTS.Model)
	if err := deps.Handle.Load(ctx, load); err != nil {
		slog.Error("failed to load TTS model", "error", err)
		os.Exit(1)
	}
	slog.Info("TTS model loaded")

	router := api.NewRouter(cfg, deps)
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TTS.SynthesisTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting TTS server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("flush traces", "error", err)
	}
	slog.Info("server stopped")
}
