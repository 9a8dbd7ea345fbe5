package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AudioCache stores synthesized audio by key.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error
}

// CachedEngine serves repeated requests from an AudioCache. Cache failures are
// logged and fall through to the wrapped engine.
type CachedEngine struct {
	Engine
	cache AudioCache
	ttl   time.Duration
}

func NewCachedEngine(e Engine, cache AudioCache, ttl time.Duration) *CachedEngine {
	return &CachedEngine{Engine: e, cache: cache, ttl: ttl}
}

func (c *CachedEngine) Synthesize(ctx context.Context, req Request) (*Result, error) {
	key := c.key(req)

	audio, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("audio cache read failed", "error", err)
	}
	if ok {
		return &Result{
			ID:          uuid.NewString(),
			Engine:      c.Name(),
			Model:       c.Model(),
			Audio:       audio,
			ContentType: ContentTypeWAV,
			Cached:      true,
		}, nil
	}

	res, err := c.Engine.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, res.Audio, c.ttl); err != nil {
		slog.Warn("audio cache write failed", "error", err)
	}
	return res, nil
}

func (c *CachedEngine) key(req Request) string {
	h := sha256.New()
	for _, part := range []string{
		c.Name(), c.Model(), req.Text, req.SpeakerID, req.LanguageID,
		strconv.FormatFloat(req.Speed, 'f', -1, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "tts:audio:" + hex.EncodeToString(h.Sum(nil))
}
