package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsserver/internal/cache"
	"github.com/nikhilbhutani/ttsserver/internal/config"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
	"github.com/nikhilbhutani/ttsserver/internal/tts/ttstest"
)

func TestNewLoaderBackends(t *testing.T) {
	for _, backend := range []string{config.BackendPiper, config.BackendOpenAI, ""} {
		load, err := tts.NewLoader(config.TTSConfig{Backend: backend, Model: config.DefaultModel})
		require.NoError(t, err, backend)
		assert.NotNil(t, load, backend)
	}

	_, err := tts.NewLoader(config.TTSConfig{Backend: "coqui"})
	assert.ErrorContains(t, err, "coqui")
}

func TestLoaderDecorators(t *testing.T) {
	mem := cache.NewMemory(time.Minute, 10)
	defer mem.Stop()

	fake := ttstest.NewEngine()
	base := func(ctx context.Context) (tts.Engine, error) { return fake, nil }

	load := tts.WithTracing(tts.WithCache(base, mem, time.Minute))
	handle := tts.NewHandle()
	require.NoError(t, handle.Load(context.Background(), load))

	e, err := handle.Engine()
	require.NoError(t, err)
	assert.IsType(t, &tts.TracedEngine{}, e)

	req := tts.Request{Text: "hi", LanguageID: "en", Speed: 1}
	_, err = e.Synthesize(context.Background(), req)
	require.NoError(t, err)
	res, err := e.Synthesize(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, 1, fake.Calls())
}

func TestLoaderDecoratorsPropagateErrors(t *testing.T) {
	boom := errors.New("missing model file")
	base := func(ctx context.Context) (tts.Engine, error) { return nil, boom }

	mem := cache.NewMemory(time.Minute, 10)
	defer mem.Stop()

	_, err := tts.WithTracing(tts.WithCache(base, mem, time.Minute))(context.Background())
	assert.ErrorIs(t, err, boom)
}
