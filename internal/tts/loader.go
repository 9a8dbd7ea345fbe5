package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilbhutani/ttsserver/internal/config"
)

// NewLoader picks the backend named in cfg.
func NewLoader(cfg config.TTSConfig) (Loader, error) {
	switch cfg.Backend {
	case config.BackendPiper, "":
		return LoadPiper(PiperConfig{
			BinPath:  cfg.PiperBinPath,
			ModelDir: cfg.ModelDir,
			Model:    cfg.Model,
		}), nil
	case config.BackendOpenAI:
		model := cfg.Model
		if model == config.DefaultModel {
			model = ""
		}
		return LoadOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

// WithCache wraps the engine produced by load in a CachedEngine.
func WithCache(load Loader, cache AudioCache, ttl time.Duration) Loader {
	return func(ctx context.Context) (Engine, error) {
		e, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return NewCachedEngine(e, cache, ttl), nil
	}
}

// WithTracing wraps the engine produced by load in a TracedEngine.
func WithTracing(load Loader) Loader {
	return func(ctx context.Context) (Engine, error) {
		e, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return NewTracedEngine(e), nil
	}
}
