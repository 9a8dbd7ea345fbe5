package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsserver/internal/api/handlers"
	"github.com/nikhilbhutani/ttsserver/internal/queue"
	"github.com/nikhilbhutani/ttsserver/internal/tts"
)

type fakeQueue struct {
	submitted []tts.Request
	jobs      map[string]*queue.Job
	err       error
}

func (q *fakeQueue) Submit(ctx context.Context, req tts.Request) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.submitted = append(q.submitted, req)
	return "job-1", nil
}

func (q *fakeQueue) Get(ctx context.Context, id string) (*queue.Job, error) {
	job, ok := q.jobs[id]
	if !ok {
		return nil, queue.ErrJobNotFound
	}
	return job, nil
}

func jobRouter(q handlers.JobQueue) http.Handler {
	h := handlers.NewJobHandler(q, "en", 100)
	r := chi.NewRouter()
	r.Post("/api/tts/jobs", h.Submit)
	r.Get("/api/tts/jobs/{id}", h.Get)
	return r
}

func TestJobSubmit(t *testing.T) {
	q := &fakeQueue{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tts/jobs", strings.NewReader(`{"text": " hi there ", "speed": 1.5}`))

	jobRouter(q).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/tts/jobs/job-1", rec.Header().Get("Location"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"job_id": "job-1", "status": "queued"}, body)

	require.Len(t, q.submitted, 1)
	assert.Equal(t, "hi there", q.submitted[0].Text)
	assert.Equal(t, "en", q.submitted[0].LanguageID)
	assert.Equal(t, 1.5, q.submitted[0].Speed)
}

func TestJobSubmitRejectsInvalidInput(t *testing.T) {
	q := &fakeQueue{}

	for _, body := range []string{`{"text": ""}`, `not json`, `{"text": "` + strings.Repeat("a", 101) + `"}`, `{"text": "hi", "speed": 0}`} {
		rec := httptest.NewRecorder()
		jobRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tts/jobs", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, q.submitted)
}

func TestJobSubmitRejectsOversizedBody(t *testing.T) {
	q := &fakeQueue{}
	body := `{"text": "` + strings.Repeat("a", 1<<20) + `"}`

	rec := httptest.NewRecorder()
	jobRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tts/jobs", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, q.submitted)
}

func TestJobSubmitQueueFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	rec := httptest.NewRecorder()
	jobRouter(q).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tts/jobs", strings.NewReader(`{"text": "hi"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

func TestJobGet(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &fakeQueue{jobs: map[string]*queue.Job{
		"pending": {ID: "pending", Status: queue.StatusProcessing, CreatedAt: created},
		"broken":  {ID: "broken", Status: queue.StatusFailed, Error: "speaker not found", CreatedAt: created},
		"ready":   {ID: "ready", Status: queue.StatusDone, CreatedAt: created, Audio: []byte("RIFFdata")},
	}}
	h := jobRouter(q)

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tts/jobs/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("processing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tts/jobs/pending", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var job map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, "pending", job["job_id"])
		assert.Equal(t, "processing", job["status"])
		assert.NotContains(t, job, "error")
	})

	t.Run("failed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tts/jobs/broken", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"speaker not found"`)
	})

	t.Run("done", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tts/jobs/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
		assert.Equal(t, "8", rec.Header().Get("Content-Length"))
		assert.Equal(t, "RIFFdata", rec.Body.String())
	})
}
