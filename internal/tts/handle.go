package tts

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Handle is the application-scoped reference to the loaded model. It starts
// unloaded and is set at most once by a successful Load.
type Handle struct {
	engine atomic.Pointer[Engine]
}

func NewHandle() *Handle {
	return &Handle{}
}

// NewLoadedHandle wraps an already constructed engine.
func NewLoadedHandle(e Engine) *Handle {
	h := &Handle{}
	h.engine.Store(&e)
	return h
}

// Load runs the loader and publishes its engine. A failed load leaves the
// handle unloaded; loading an already loaded handle is an error.
func (h *Handle) Load(ctx context.Context, load Loader) error {
	if h.Loaded() {
		return fmt.Errorf("model already loaded")
	}

	e, err := load(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	if !h.engine.CompareAndSwap(nil, &e) {
		return fmt.Errorf("model already loaded")
	}
	return nil
}

func (h *Handle) Loaded() bool {
	return h.engine.Load() != nil
}

// Engine returns the loaded engine or ErrModelNotLoaded.
func (h *Handle) Engine() (Engine, error) {
	p := h.engine.Load()
	if p == nil {
		return nil, ErrModelNotLoaded
	}
	return *p, nil
}
