package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/podscribe/internal/api/shared"
	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/task"
)

// JobQueue is the part of the job queue the HTTP layer drives.
type JobQueue interface {
	Submit(ctx context.Context, payload domain.Payload, fn task.JobFunc[domain.Payload, domain.Result], opts ...task.SubmitOption) (Job, error)
	SubmitBatch(ctx context.Context, subs []task.Submission[domain.Payload, domain.Result]) ([]Job, error)
	Cancel(ctx context.Context, id string) (bool, error)
	ClearPending(ctx context.Context) int
	Snapshot() task.Snapshot
	Job(id string) (Job, error)
}

// QueueHandler handles submission and control of transcription jobs
type QueueHandler struct {
	queue   JobQueue
	jobFunc task.JobFunc[domain.Payload, domain.Result]
	logger  *slog.Logger
}

// NewQueueHandler creates a new QueueHandler. Every admitted job runs jobFunc.
func NewQueueHandler(queue JobQueue, jobFunc task.JobFunc[domain.Payload, domain.Result], logger *slog.Logger) *QueueHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &QueueHandler{
		queue:   queue,
		jobFunc: jobFunc,
		logger:  logger.With("component", "queue_handler"),
	}
}

// Submit handles POST /api/queue requests
func (h *QueueHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	payload := domain.NewPayload(req.URL, domain.Operation(req.Operation), req.AudioLanguage, req.OutputLanguage)

	var opts []task.SubmitOption
	if req.SessionID != "" {
		opts = append(opts, task.WithSessionID(req.SessionID))
	}

	job, err := h.queue.Submit(r.Context(), payload, h.jobFunc, opts...)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	h.logger.Info("job submitted", "job_id", job.ID, "position", job.Position)

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitResponse{
		Success:     true,
		Message:     "Task added to queue",
		Task:        toTaskSummary(job),
		QueueStatus: h.queue.Snapshot(),
	})
}

// SubmitBatch handles POST /api/queue/batch requests
func (h *QueueHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	req.URLs = urls

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "No valid URLs provided", err)
		return
	}

	op := domain.Operation(req.Operation)
	subs := make([]task.Submission[domain.Payload, domain.Result], 0, len(urls))
	for _, u := range urls {
		subs = append(subs, task.Submission[domain.Payload, domain.Result]{
			Payload: domain.NewPayload(u, op, req.AudioLanguage, req.OutputLanguage),
			Func:    h.jobFunc,
		})
	}

	jobs, err := h.queue.SubmitBatch(r.Context(), subs)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	summaries := make([]TaskSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, toTaskSummary(job))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, BatchResponse{
		Success:     true,
		Message:     fmt.Sprintf("Added %d tasks to queue", len(jobs)),
		Tasks:       summaries,
		QueueStatus: h.queue.Snapshot(),
	})
}

// Status handles GET /api/queue/status requests
func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Success:  true,
		Snapshot: h.queue.Snapshot(),
	})
}

// GetTask handles GET /api/queue/task/{id} requests
func (h *QueueHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Job(chi.URLParam(r, "id"))
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResponse{
		Success: true,
		Task:    toTaskDetail(job),
	})
}

// CancelTask handles DELETE /api/queue/task/{id} requests. Only queued
// jobs can be cancelled; anything else answers 409.
func (h *QueueHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cancelled, err := h.queue.Cancel(r.Context(), id)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	if !cancelled {
		shared.RespondWithJSON(w, r, http.StatusConflict, MessageResponse{
			Success: false,
			Message: "Task cannot be cancelled (it may be processing or already finished)",
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Task cancelled",
	})
}

// ClearQueue handles DELETE /api/queue/all requests
func (h *QueueHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	count := h.queue.ClearPending(r.Context())

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Cancelled %d queued tasks", count),
	})
}
