// Package ttstest provides an in-memory tts.Engine for tests.
package ttstest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

// Engine produces a short silent WAV for every request and records the
// requests it saw.
type Engine struct {
	SpeakerList  []string
	LanguageList []string
	Err          error
	EnumErr      error

	calls atomic.Int64
	mu    sync.Mutex
	reqs  []tts.Request
}

func NewEngine() *Engine {
	return &Engine{
		SpeakerList:  []string{"p225", "p226"},
		LanguageList: []string{"en", "de"},
	}
}

func (e *Engine) Name() string  { return "fake" }
func (e *Engine) Model() string { return "fake-model" }

func (e *Engine) Speakers(ctx context.Context) ([]string, error) {
	if e.EnumErr != nil {
		return nil, e.EnumErr
	}
	return e.SpeakerList, nil
}

func (e *Engine) Languages(ctx context.Context) ([]string, error) {
	if e.EnumErr != nil {
		return nil, e.EnumErr
	}
	return e.LanguageList, nil
}

func (e *Engine) Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.reqs = append(e.reqs, req)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if req.SpeakerID != "" && !slices.Contains(e.SpeakerList, req.SpeakerID) {
		return nil, fmt.Errorf("%w: %q", tts.ErrUnknownSpeaker, req.SpeakerID)
	}

	audio, err := tts.EncodeWAV(make([]byte, 2*160), tts.PCMFormat{SampleRate: 16000, Channels: 1, BitDepth: 16})
	if err != nil {
		return nil, err
	}

	return &tts.Result{
		ID:          uuid.NewString(),
		Engine:      e.Name(),
		Model:       e.Model(),
		Audio:       audio,
		ContentType: tts.ContentTypeWAV,
	}, nil
}

// Calls returns how many times Synthesize ran.
func (e *Engine) Calls() int {
	return int(e.calls.Load())
}

// Requests returns a copy of the requests passed to Synthesize.
func (e *Engine) Requests() []tts.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Request{}, e.reqs...)
}
