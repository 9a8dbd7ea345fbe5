package tts

import (
	"context"
	"errors"
)

var (
	ErrModelNotLoaded      = errors.New("TTS model not loaded")
	ErrEmptyText           = errors.New("text is required")
	ErrTextTooLong         = errors.New("text exceeds maximum length")
	ErrInvalidSpeed        = errors.New("speed must be greater than 0 and at most 4")
	ErrUnknownSpeaker      = errors.New("unknown speaker")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// IsInvalidInput reports whether err was caused by the caller's request rather
// than by the engine.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrTextTooLong) ||
		errors.Is(err, ErrInvalidSpeed) ||
		errors.Is(err, ErrUnknownSpeaker) ||
		errors.Is(err, ErrUnsupportedLanguage)
}

// Result holds the generated audio and its content type.
type Result struct {
	ID          string
	Engine      string
	Model       string
	Audio       []byte
	ContentType string
	Cached      bool
}

// Engine is a loaded speech synthesis model. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	Model() string
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Speakers(ctx context.Context) ([]string, error)
	Languages(ctx context.Context) ([]string, error)
}

// Loader builds an Engine, doing whatever model loading the backend needs.
type Loader func(ctx context.Context) (Engine, error)

const ContentTypeWAV = "audio/wav"
