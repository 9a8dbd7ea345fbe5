package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/ttsserver/internal/history"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

// Recorder stores one history row per synthesis.
type Recorder interface {
	Record(ctx context.Context, r history.Record) error
}

const historyTimeout = 5 * time.Second

type TTSOptions struct {
	DefaultLanguage string
	MaxTextLength   int
	Timeout         time.Duration
	History         Recorder // optional
}

type TTSHandler struct {
	handle *tts.Handle
	opts   TTSOptions
}

func NewTTSHandler(handle *tts.Handle, opts TTSOptions) *TTSHandler {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = tts.DefaultLanguage
	}
	return &TTSHandler{handle: handle, opts: opts}
}

type StatusResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Engine      string `json:"engine,omitempty"`
	Model       string `json:"model,omitempty"`
}

// Status reports whether the model is loaded.
func (h *TTSHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "running"}

	if e, err := h.handle.Engine(); err == nil {
		resp.ModelLoaded = true
		resp.Engine = e.Name()
		resp.Model = e.Model()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Synthesize converts the posted text to a WAV file.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	engine, err := h.handle.Engine()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var body tts.RequestBody
	if status, err := decodeBody(w, r, bodyLimit(h.opts.MaxTextLength), &body); err != nil {
		writeError(w, status, err.Error())
		return
	}

	req, err := body.Normalize(h.opts.DefaultLanguage, h.opts.MaxTextLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := engine.Synthesize(ctx, req)
	h.record(r.Context(), engine, req, res, err, time.Since(start))

	if err != nil {
		if tts.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("synthesis failed", "engine", engine.Name(), "model", engine.Model(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("X-Synthesis-Id", res.ID)
	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeAudio(w, res.ContentType, res.Audio)
}

func (h *TTSHandler) record(ctx context.Context, e tts.Engine, req tts.Request, res *tts.Result, synthErr error, elapsed time.Duration) {
	if h.opts.History == nil {
		return
	}

	rec := history.Record{
		Engine:     e.Name(),
		Model:      e.Model(),
		Speaker:    req.SpeakerID,
		Language:   req.LanguageID,
		Speed:      req.Speed,
		TextLength: len([]rune(req.Text)),
		LatencyMs:  elapsed.Milliseconds(),
		Status:     history.StatusOK,
	}
	if synthErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = synthErr.Error()
	} else {
		rec.AudioBytes = len(res.Audio)
		rec.Cached = res.Cached
	}

	// The row is written even when the client has already gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := h.opts.History.Record(ctx, rec); err != nil {
		slog.Warn("record synthesis history", "error", err)
	}
}

// Speakers lists the voices of the loaded model; empty when none is loaded.
func (h *TTSHandler) Speakers(w http.ResponseWriter, r *http.Request) {
	engine, err := h.handle.Engine()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string][]string{"speakers": {}})
		return
	}

	speakers, err := engine.Speakers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "speakers": []string{}})
		return
	}
	if speakers == nil {
		speakers = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"speakers": speakers})
}

// Languages lists the languages of the loaded model, falling back to English.
func (h *TTSHandler) Languages(w http.ResponseWriter, r *http.Request) {
	fallback := []string{tts.DefaultLanguage}

	engine, err := h.handle.Engine()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string][]string{"languages": fallback})
		return
	}

	languages, err := engine.Languages(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "languages": fallback})
		return
	}
	if len(languages) == 0 {
		languages = fallback
	}

	writeJSON(w, http.StatusOK, map[string][]string{"languages": languages})
}
