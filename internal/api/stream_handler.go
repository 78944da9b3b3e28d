package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/podscribe/internal/api/shared"
	"github.com/phrazzld/podscribe/internal/stream"
	"github.com/phrazzld/podscribe/internal/task"
)

// statusEventType tags every message of the queue status stream
const statusEventType = "status"

// StreamHandler serves the server-sent event endpoints
type StreamHandler struct {
	status   *stream.Broadcaster[task.Snapshot]
	sessions *stream.SessionHub
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(status *stream.Broadcaster[task.Snapshot], sessions *stream.SessionHub, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamHandler{
		status:   status,
		sessions: sessions,
		logger:   logger.With("component", "stream_handler"),
	}
}

// SubscribeStatus handles GET /api/queue/subscribe. The current snapshot
// is sent immediately, then one every broadcast interval.
func (h *StreamHandler) SubscribeStatus(w http.ResponseWriter, r *http.Request) {
	ew, err := startEventStream(w)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Streaming not supported", err)
		return
	}

	sub := h.status.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case snap := <-sub.C():
			if err := ew.send(StatusEvent{Type: statusEventType, Snapshot: snap}); err != nil {
				h.logger.Debug("status stream closed", "error", err)
				return
			}
		}
	}
}

// SubscribeSession handles GET /api/progress/{sessionId}
func (h *StreamHandler) SubscribeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Session ID is required")
		return
	}

	ew, err := startEventStream(w)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Streaming not supported", err)
		return
	}

	sub := h.sessions.Register(sessionID)
	defer sub.Close()

	h.logger.Debug("session stream opened", "session_id", sessionID)
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("session stream closed", "session_id", sessionID)
			return
		case <-sub.Done():
			return
		case ev := <-sub.C():
			if err := ew.send(ev); err != nil {
				h.logger.Debug("session stream closed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}
