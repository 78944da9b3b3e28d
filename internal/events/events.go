package events

import (
	"context"
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
)

// JobEventType identifies the kind of lifecycle transition an event reports.
type JobEventType string

// Job event types
const (
	JobSubmitted JobEventType = "submitted"
	JobStarted   JobEventType = "started"
	JobRequeued  JobEventType = "requeued"
	JobProgress  JobEventType = "progress"
	JobLog       JobEventType = "log"
	JobCompleted JobEventType = "completed"
	JobFailed    JobEventType = "failed"
	JobCancelled JobEventType = "cancelled"
)

// Terminal reports whether the event type ends a job's lifecycle.
func (t JobEventType) Terminal() bool {
	switch t {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// JobEvent carries one job transition. Fields that do not apply to the
// event type are left at their zero value.
type JobEvent struct {
	Type       JobEventType       `json:"type"`
	JobID      string             `json:"jobId"`
	SessionID  string             `json:"sessionId,omitempty"`
	URL        string             `json:"url,omitempty"`
	Progress   int                `json:"progress"`
	Stage      string             `json:"stage,omitempty"`
	StageText  string             `json:"stageText,omitempty"`
	Message    string             `json:"message,omitempty"`
	Title      string             `json:"title,omitempty"`
	SavedFiles []domain.SavedFile `json:"savedFiles,omitempty"`
	Error      string             `json:"error,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// NewJobEvent creates an event of the given type for a job, stamped with
// the current time.
func NewJobEvent(eventType JobEventType, jobID string) *JobEvent {
	return &JobEvent{
		Type:       eventType,
		JobID:      jobID,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the queue to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}
