package api

import (
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/phrazzld/podscribe/internal/task"
)

// Job is the concrete job type served by the API.
type Job = task.Job[domain.Payload, domain.Result]

// SubmitRequest defines the payload for a single submission.
type SubmitRequest struct {
	URL            string `json:"url"            validate:"required"`
	Operation      string `json:"operation"      validate:"omitempty,oneof=transcribe_only transcribe_summarize"`
	AudioLanguage  string `json:"audioLanguage"`
	OutputLanguage string `json:"outputLanguage"`

	// SessionID routes fine-grained progress to /api/progress/{sessionId}
	SessionID string `json:"sessionId"`
}

// BatchRequest defines the payload for a batch submission. Blank URLs are
// dropped before validation.
type BatchRequest struct {
	URLs           []string `json:"urls"           validate:"required,min=1"`
	Operation      string   `json:"operation"      validate:"omitempty,oneof=transcribe_only transcribe_summarize"`
	AudioLanguage  string   `json:"audioLanguage"`
	OutputLanguage string   `json:"outputLanguage"`
}

// TaskSummary is the short form of an admitted job.
type TaskSummary struct {
	ID       string      `json:"id"`
	URL      string      `json:"url"`
	Position int         `json:"position"`
	Status   task.Status `json:"status"`
}

// SubmitResponse is returned for a single submission.
type SubmitResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	Task        TaskSummary   `json:"task"`
	QueueStatus task.Snapshot `json:"queueStatus"`
}

// BatchResponse is returned for a batch submission.
type BatchResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	Tasks       []TaskSummary `json:"tasks"`
	QueueStatus task.Snapshot `json:"queueStatus"`
}

// StatusResponse flattens a queue snapshot next to the success flag.
type StatusResponse struct {
	Success bool `json:"success"`
	task.Snapshot
}

// StatusEvent is one message of the queue status stream.
type StatusEvent struct {
	Type string `json:"type"`
	task.Snapshot
}

// TaskResult is the part of a job result exposed over HTTP.
type TaskResult struct {
	PodcastTitle string             `json:"podcastTitle"`
	SavedFiles   []domain.SavedFile `json:"savedFiles"`
}

// TaskDetail is the full view of one job.
type TaskDetail struct {
	ID             string           `json:"id"`
	URL            string           `json:"url"`
	Operation      domain.Operation `json:"operation"`
	AudioLanguage  string           `json:"audioLanguage"`
	OutputLanguage string           `json:"outputLanguage"`
	Status         task.Status      `json:"status"`
	Progress       int              `json:"progress"`
	Stage          string           `json:"stage"`
	StageText      string           `json:"stageText"`
	Position       int              `json:"position"`
	QueuedAt       time.Time        `json:"queuedAt"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	FailedAt       *time.Time       `json:"failedAt,omitempty"`
	CancelledAt    *time.Time       `json:"cancelledAt,omitempty"`
	Error          string           `json:"error,omitempty"`

	// Result is only set for completed jobs
	Result *TaskResult `json:"result,omitempty"`
}

// TaskResponse wraps a TaskDetail.
type TaskResponse struct {
	Success bool       `json:"success"`
	Task    TaskDetail `json:"task"`
}

// MessageResponse is returned by control endpoints.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HistoryListResponse is one page of history records.
type HistoryListResponse struct {
	Success bool `json:"success"`
	history.Page
}

// HistoryRecordResponse wraps a single record.
type HistoryRecordResponse struct {
	Success bool           `json:"success"`
	Record  history.Record `json:"record"`
}

// HealthResponse is served by /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

func toTaskSummary(job Job) TaskSummary {
	return TaskSummary{
		ID:       job.ID,
		URL:      job.Payload.URL,
		Position: job.Position,
		Status:   job.Status,
	}
}

func toTaskDetail(job Job) TaskDetail {
	d := TaskDetail{
		ID:             job.ID,
		URL:            job.Payload.URL,
		Operation:      job.Payload.Operation,
		AudioLanguage:  job.Payload.AudioLanguage,
		OutputLanguage: job.Payload.OutputLanguage,
		Status:         job.Status,
		Progress:       job.Progress,
		Stage:          job.Stage,
		StageText:      job.StageText,
		Position:       job.Position,
		QueuedAt:       job.QueuedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		FailedAt:       job.FailedAt,
		CancelledAt:    job.CancelledAt,
		Error:          job.Error,
	}

	if job.Status == task.StatusCompleted && job.Result != nil {
		files := job.Result.SavedFiles
		if files == nil {
			files = []domain.SavedFile{}
		}
		d.Result = &TaskResult{
			PodcastTitle: job.Result.PodcastTitle,
			SavedFiles:   files,
		}
	}
	return d
}
