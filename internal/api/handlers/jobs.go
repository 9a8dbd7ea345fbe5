package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/ttsserver/internal/queue"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

type JobQueue interface {
	Submit(ctx context.Context, req tts.Request) (string, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
}

type JobHandler struct {
	jobs            JobQueue
	defaultLanguage string
	maxTextLength   int
}

func NewJobHandler(jobs JobQueue, defaultLanguage string, maxTextLength int) *JobHandler {
	return &JobHandler{jobs: jobs, defaultLanguage: defaultLanguage, maxTextLength: maxTextLength}
}

// Submit queues a synthesis for the worker.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body tts.RequestBody
	if status, err := decodeBody(w, r, bodyLimit(h.maxTextLength), &body); err != nil {
		writeError(w, status, err.Error())
		return
	}

	req, err := body.Normalize(h.defaultLanguage, h.maxTextLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Location", "/api/tts/jobs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": string(queue.StatusQueued)})
}

// Get returns the job state, or the audio once the job is done.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if job.Status == queue.StatusDone {
		writeAudio(w, tts.ContentTypeWAV, job.Audio)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
