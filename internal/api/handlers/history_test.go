package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsserver/internal/api/handlers"
	"github.com/nikhilbhutani/ttsserver/internal/history"
)

type fakeHistory struct {
	records   []history.Record
	lastLimit int
	err       error
	ctxErrs   []error
}

func (f *fakeHistory) Record(ctx context.Context, r history.Record) error {
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeHistory) List(ctx context.Context, limit int) ([]history.Record, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestHistoryList(t *testing.T) {
	store := &fakeHistory{records: []history.Record{{Engine: "piper", Model: "en_US-lessac-medium", Status: history.StatusOK}}}
	h := handlers.NewHistoryHandler(store)

	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, history.DefaultLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=100000", http.StatusOK, history.MaxLimit},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		store.lastLimit = 0
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))

		assert.Equal(t, tt.wantCode, rec.Code, tt.query)
		assert.Equal(t, tt.wantLimit, store.lastLimit, tt.query)
	}
}

func TestHistoryListBody(t *testing.T) {
	store := &fakeHistory{records: []history.Record{{Engine: "piper", Model: "m", Status: history.StatusOK, AudioBytes: 42}}}
	rec := httptest.NewRecorder()
	handlers.NewHistoryHandler(store).List(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	var body struct {
		History []history.Record `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1)
	assert.Equal(t, 42, body.History[0].AudioBytes)
}

func TestHistoryListError(t *testing.T) {
	store := &fakeHistory{err: errors.New("connection refused")}
	rec := httptest.NewRecorder()
	handlers.NewHistoryHandler(store).List(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
