package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/podscribe/internal/api/shared"
	"github.com/phrazzld/podscribe/internal/history"
)

// HistoryStore is the part of the record store the HTTP layer reads and
// prunes.
type HistoryStore interface {
	List(opts history.ListOptions) history.Page
	Get(id string) (history.Record, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context)
}

// HistoryHandler serves the durable job history
type HistoryHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store HistoryStore, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HistoryHandler{
		store:  store,
		logger: logger.With("component", "history_handler"),
	}
}

// List handles GET /api/history?status=&page=&pageSize= requests
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := shared.QueryInt(r, "page", 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid page", err)
		return
	}

	pageSize, err := shared.QueryInt(r, "pageSize", history.DefaultPageSize)
	if err != nil || pageSize == 0 {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid pageSize", err)
		return
	}

	status := history.Status(r.URL.Query().Get("status"))
	switch status {
	case "", history.StatusQueued, history.StatusProcessing, history.StatusCompleted,
		history.StatusFailed, history.StatusCancelled:
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryListResponse{
		Success: true,
		Page: h.store.List(history.ListOptions{
			Status:   status,
			Page:     page,
			PageSize: pageSize,
		}),
	})
}

// Get handles GET /api/history/{id} requests
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryRecordResponse{
		Success: true,
		Record:  rec,
	})
}

// Delete handles DELETE /api/history/{id} requests
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Remove(r.Context(), id); err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	h.logger.Info("history record deleted", "record_id", id)
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Success: true,
		Message: "History record deleted",
	})
}

// Clear handles DELETE /api/history requests
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear(r.Context())

	h.logger.Info("history cleared")
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Success: true,
		Message: "History cleared",
	})
}
