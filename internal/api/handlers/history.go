package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/ttsserver/internal/history"
)

type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
}

type HistoryHandler struct {
	store HistoryLister
}

func NewHistoryHandler(store HistoryLister) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := h.store.List(r.Context(), history.ClampLimit(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": records})
}
