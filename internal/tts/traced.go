package tts

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const instrumentationName = "github.com/nikhilbhutani/ttsserver/internal/tts"

// TracedEngine records a span for every synthesis.
type TracedEngine struct {
	Engine
}

func NewTracedEngine(e Engine) *TracedEngine {
	return &TracedEngine{Engine: e}
}

func (t *TracedEngine) Synthesize(ctx context.Context, req Request) (*Result, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "synthesize "+t.Model())
	defer span.End()

	span.SetAttributes(
		attribute.String("tts.engine", t.Name()),
		attribute.String("tts.model", t.Model()),
		attribute.String("tts.speaker", req.SpeakerID),
		attribute.String("tts.language", req.LanguageID),
		attribute.Float64("tts.speed", req.Speed),
		attribute.Int("tts.text_length", len(req.Text)),
	)

	res, err := t.Engine.Synthesize(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("tts.audio_bytes", len(res.Audio)),
		attribute.Bool("tts.cached", res.Cached),
	)
	return res, nil
}
