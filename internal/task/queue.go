package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/podscribe/internal/events"
)

// QueueConfig holds configuration for the job queue
type QueueConfig struct {
	// CompletedLimit caps the in-memory list of finished jobs
	CompletedLimit int

	// SnapshotRecentLimit caps how many finished jobs a Snapshot includes
	SnapshotRecentLimit int

	// ProgressBuffer is the capacity of each running job's progress channel
	ProgressBuffer int
}

// DefaultQueueConfig returns a QueueConfig with reasonable defaults
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		CompletedLimit:      50,
		SnapshotRecentLimit: 10,
		ProgressBuffer:      64,
	}
}

type entry[P Payload, R any] struct {
	job Job[P, R]
	fn  JobFunc[P, R]
}

// Queue admits jobs in FIFO order and runs them one at a time.
//
// A single mutex guards the pending sequence, the current slot and the
// completed list. Events are emitted while it is held so handlers observe
// transitions in order; handlers must not call back into the queue.
type Queue[P Payload, R any] struct {
	mu        sync.Mutex
	pending   []*entry[P, R]
	current   *entry[P, R]
	completed []*entry[P, R] // newest first

	// next hands a promoted job to the runner. At most one job is ever in
	// flight between promotion and settlement, so one slot is enough.
	next chan *entry[P, R]

	started bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	emitter events.EventEmitter
	config  QueueConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewQueue creates a queue. It accepts jobs immediately but only executes
// them after Start.
func NewQueue[P Payload, R any](emitter events.EventEmitter, config QueueConfig, logger *slog.Logger) *Queue[P, R] {
	defaults := DefaultQueueConfig()
	if config.CompletedLimit <= 0 {
		config.CompletedLimit = defaults.CompletedLimit
	}
	if config.SnapshotRecentLimit <= 0 {
		config.SnapshotRecentLimit = defaults.SnapshotRecentLimit
	}
	if config.ProgressBuffer <= 0 {
		config.ProgressBuffer = defaults.ProgressBuffer
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	return &Queue[P, R]{
		next:    make(chan *entry[P, R], 1),
		emitter: emitter,
		config:  config,
		logger:  logger.With("component", "job_queue"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and enqueues one job. If nothing is processing, the job
// is promoted before Submit returns, so the returned copy already reports
// StatusProcessing.
func (q *Queue[P, R]) Submit(ctx context.Context, payload P, fn JobFunc[P, R], opts ...SubmitOption) (Job[P, R], error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	sub := Submission[P, R]{Payload: payload, Func: fn, SessionID: o.sessionID}
	if err := validateSubmission(sub); err != nil {
		return Job[P, R]{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.admitLocked(ctx, sub)
	q.dispatchLocked(ctx)
	return e.job, nil
}

// SubmitBatch enqueues the submissions in order. Every item is validated
// first; if any is invalid nothing is admitted.
func (q *Queue[P, R]) SubmitBatch(ctx context.Context, subs []Submission[P, R]) ([]Job[P, R], error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidSubmission)
	}
	for i, sub := range subs {
		if err := validateSubmission(sub); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]Job[P, R], 0, len(subs))
	for _, sub := range subs {
		e := q.admitLocked(ctx, sub)
		q.dispatchLocked(ctx)
		jobs = append(jobs, e.job)
	}

	q.logger.Info("batch queued", "count", len(jobs), "pending_count", len(q.pending))
	return jobs, nil
}

// Cancel removes a still-queued job. It returns false for a job that is
// processing or already finished, and ErrJobNotFound for an unknown ID.
func (q *Queue[P, R]) Cancel(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.pending {
		if e.job.ID != id {
			continue
		}

		copy(q.pending[i:], q.pending[i+1:])
		q.pending[len(q.pending)-1] = nil
		q.pending = q.pending[:len(q.pending)-1]
		q.markCancelledLocked(ctx, e, q.now())
		q.pushCompletedLocked(e)
		q.renumberLocked()

		q.logger.Info("job cancelled", "job_id", id, "pending_count", len(q.pending))
		return true, nil
	}

	if q.current != nil && q.current.job.ID == id {
		return false, nil
	}
	if q.findCompletedLocked(id) != nil {
		return false, nil
	}

	return false, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// ClearPending cancels every queued job and leaves the processing job
// alone. It returns the number of jobs cancelled.
func (q *Queue[P, R]) ClearPending(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancelled := q.pending
	q.pending = nil

	now := q.now()
	for _, e := range cancelled {
		q.markCancelledLocked(ctx, e, now)
	}

	q.completed = append(cancelled, q.completed...)
	q.trimCompletedLocked()

	q.logger.Info("pending jobs cleared", "cancelled_count", len(cancelled))
	return len(cancelled)
}

// Job looks a job up in the current slot, then the pending sequence, then
// the completed list.
func (q *Queue[P, R]) Job(id string) (Job[P, R], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil && q.current.job.ID == id {
		return q.current.job, nil
	}
	for _, e := range q.pending {
		if e.job.ID == id {
			return e.job, nil
		}
	}
	if e := q.findCompletedLocked(id); e != nil {
		return e.job, nil
	}

	return Job[P, R]{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

func validateSubmission[P Payload, R any](sub Submission[P, R]) error {
	if sub.Func == nil {
		return fmt.Errorf("%w: missing job function", ErrInvalidSubmission)
	}
	if err := sub.Payload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	return nil
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (q *Queue[P, R]) admitLocked(ctx context.Context, sub Submission[P, R]) *entry[P, R] {
	e := &entry[P, R]{
		fn: sub.Func,
		job: Job[P, R]{
			ID:        newJobID(),
			SessionID: sub.SessionID,
			Payload:   sub.Payload,
			Status:    StatusQueued,
			QueuedAt:  q.now(),
		},
	}
	if e.job.SessionID == "" {
		e.job.SessionID = e.job.ID
	}

	q.pending = append(q.pending, e)
	q.renumberLocked()

	q.emitLocked(ctx, q.newEvent(events.JobSubmitted, e))
	q.logger.Info("job queued",
		"job_id", e.job.ID,
		"url", e.job.Payload.SourceURL(),
		"position", e.job.Position)

	return e
}

// dispatchLocked promotes the head of the pending sequence into the
// current slot. It is the only place the slot is filled, and it never
// fills an occupied slot or promotes once the runner is shutting down.
func (q *Queue[P, R]) dispatchLocked(ctx context.Context) {
	if !q.started || q.stopped || q.runCtx.Err() != nil {
		return
	}
	if q.current != nil || len(q.pending) == 0 {
		return
	}

	e := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]

	now := q.now()
	e.job.Status = StatusProcessing
	e.job.StartedAt = &now
	e.job.Position = 0
	q.current = e
	q.renumberLocked()

	q.emitLocked(ctx, q.newEvent(events.JobStarted, e))
	q.logger.Info("processing job", "job_id", e.job.ID, "pending_count", len(q.pending))

	q.next <- e
}

func (q *Queue[P, R]) markCancelledLocked(ctx context.Context, e *entry[P, R], now time.Time) {
	e.job.Status = StatusCancelled
	e.job.CancelledAt = &now
	e.job.Position = 0
	e.fn = nil
	q.emitLocked(ctx, q.newEvent(events.JobCancelled, e))
}

func (q *Queue[P, R]) pushCompletedLocked(e *entry[P, R]) {
	q.completed = append([]*entry[P, R]{e}, q.completed...)
	q.trimCompletedLocked()
}

func (q *Queue[P, R]) trimCompletedLocked() {
	if len(q.completed) <= q.config.CompletedLimit {
		return
	}
	for i := q.config.CompletedLimit; i < len(q.completed); i++ {
		q.completed[i] = nil
	}
	q.completed = q.completed[:q.config.CompletedLimit]
}

func (q *Queue[P, R]) findCompletedLocked(id string) *entry[P, R] {
	for _, e := range q.completed {
		if e.job.ID == id {
			return e
		}
	}
	return nil
}

func (q *Queue[P, R]) renumberLocked() {
	for i, e := range q.pending {
		e.job.Position = i + 1
	}
}

func (q *Queue[P, R]) newEvent(eventType events.JobEventType, e *entry[P, R]) *events.JobEvent {
	ev := events.NewJobEvent(eventType, e.job.ID)
	ev.SessionID = e.job.SessionID
	ev.URL = e.job.Payload.SourceURL()
	ev.Progress = e.job.Progress
	ev.Stage = e.job.Stage
	ev.StageText = e.job.StageText
	ev.Error = e.job.Error
	return ev
}

// emitLocked publishes an event. Handler errors are logged and otherwise
// ignored: history and streaming failures never affect queue state.
func (q *Queue[P, R]) emitLocked(ctx context.Context, ev *events.JobEvent) {
	if err := q.emitter.EmitEvent(context.WithoutCancel(ctx), ev); err != nil {
		q.logger.Warn("event handler failed",
			"job_id", ev.JobID,
			"event_type", ev.Type,
			"error", err)
	}
}
