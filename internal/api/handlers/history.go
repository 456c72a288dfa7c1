package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dixon2004/audio-transcriber/internal/history"
)

type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List returns recent transcription requests, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.store.List(limit)
	if err != nil {
		jsonError(w, "failed to list history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	jsonResponse(w, records, http.StatusOK)
}

// Get returns a single transcription request by ID.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.store.Get(id)
	if err == sql.ErrNoRows {
		jsonError(w, "request not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load request", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, record, http.StatusOK)
}
