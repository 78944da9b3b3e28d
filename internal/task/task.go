package task

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
)

// Status represents the current state of a job
type Status string

// Possible job status values
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Common errors returned by the Queue
var (
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrJobNotFound       = errors.New("job not found")
	ErrQueueStarted      = errors.New("queue already started")
)

// Payload is the constraint on caller-supplied job parameters. The queue
// only needs a display URL and a way to reject bad input at admission.
type Payload interface {
	SourceURL() string
	Validate() error
}

// Summary is implemented by job results that carry data worth recording
// in history once the job completes.
type Summary interface {
	Title() string
	Files() []domain.SavedFile
}

// Job is one unit of queued work. Callers only ever receive copies; the
// queue owns the live value until the job is evicted from the completed list.
type Job[P Payload, R any] struct {
	ID        string
	SessionID string
	Payload   P

	Status    Status
	Progress  int
	Stage     string
	StageText string

	// Position is the 1-based index in the pending sequence, 0 once the job
	// has left it.
	Position int

	QueuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	CancelledAt *time.Time

	Result *R
	Error  string
}

// FinishedAt returns whichever terminal timestamp is set, or nil.
func (j Job[P, R]) FinishedAt() *time.Time {
	switch {
	case j.CompletedAt != nil:
		return j.CompletedAt
	case j.FailedAt != nil:
		return j.FailedAt
	default:
		return j.CancelledAt
	}
}

// JobFunc is the work executed for a job. It must report progress through
// the supplied Reporter and return either a result or an error; an error
// marks the job failed and is never retried. ctx is only cancelled when
// the queue shuts down.
type JobFunc[P Payload, R any] func(ctx context.Context, job Job[P, R], progress *Reporter) (R, error)

// Submission pairs a payload with the function that processes it.
type Submission[P Payload, R any] struct {
	Payload   P
	Func      JobFunc[P, R]
	SessionID string
}

// SubmitOption customizes a single submission.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	sessionID string
}

// WithSessionID routes the job's fine-grained progress events to the given
// session instead of the job ID.
func WithSessionID(sessionID string) SubmitOption {
	return func(o *submitOptions) {
		o.sessionID = sessionID
	}
}
