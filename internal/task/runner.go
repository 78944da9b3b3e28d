package task

import (
	"context"
	"fmt"

	"github.com/phrazzld/podscribe/internal/events"
)

// Start launches the runner goroutine and promotes the first pending job,
// including any submitted before Start. It can only be called once.
func (q *Queue[P, R]) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return ErrQueueStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	q.started = true
	q.runCtx = runCtx
	q.cancel = cancel

	q.wg.Add(1)
	go q.run(runCtx)

	q.logger.Info("job queue started", "pending_count", len(q.pending))
	q.dispatchLocked(runCtx)
	return nil
}

// Stop cancels the context passed to the running job function and waits
// for the runner to exit. Pending jobs stay queued and a promoted job that
// never started goes back to the head of the line.
func (q *Queue[P, R]) Stop() {
	q.mu.Lock()
	q.stopped = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
	q.logger.Info("job queue stopped")
}

// run executes promoted jobs until the context is cancelled
func (q *Queue[P, R]) run(ctx context.Context) {
	defer q.wg.Done()
	defer q.drainNext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q.next:
			if ctx.Err() != nil {
				q.mu.Lock()
				q.requeueLocked(ctx, e)
				q.mu.Unlock()
				return
			}
			q.execute(ctx, e)
		}
	}
}

// drainNext returns a promoted but unstarted job to the pending sequence.
// dispatchLocked sends while holding the lock, so taking it here orders
// the drain after any send that raced the cancellation.
func (q *Queue[P, R]) drainNext(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case e := <-q.next:
		q.requeueLocked(ctx, e)
	default:
	}
}

func (q *Queue[P, R]) requeueLocked(ctx context.Context, e *entry[P, R]) {
	if q.current != e {
		return
	}

	q.current = nil
	e.job.Status = StatusQueued
	e.job.StartedAt = nil
	q.pending = append([]*entry[P, R]{e}, q.pending...)
	q.renumberLocked()

	q.emitLocked(ctx, q.newEvent(events.JobRequeued, e))
	q.logger.Info("job returned to queue", "job_id", e.job.ID, "pending_count", len(q.pending))
}

// execute runs one job function to settlement. Progress updates sent
// before the function returns are applied before the terminal transition.
func (q *Queue[P, R]) execute(ctx context.Context, e *entry[P, R]) {
	q.mu.Lock()
	view := e.job
	fn := e.fn
	q.mu.Unlock()

	reporter := newReporter(view.ID, q.config.ProgressBuffer)
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		reporter.drain(func(u update) { q.apply(ctx, e, u) })
	}()

	result, err := invoke(ctx, fn, view, reporter)

	reporter.finish()
	<-pumped

	q.settle(ctx, e, result, err)
}

func invoke[P Payload, R any](ctx context.Context, fn JobFunc[P, R], job Job[P, R], reporter *Reporter) (result R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job function panicked: %v", rec)
		}
	}()
	return fn(ctx, job, reporter)
}

// apply folds one reporter update into the running job
func (q *Queue[P, R]) apply(ctx context.Context, e *entry[P, R], u update) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != e {
		return
	}

	switch u.kind {
	case updateProgress:
		if u.percent < e.job.Progress {
			q.logger.Debug("progress moved backwards",
				"job_id", e.job.ID,
				"previous", e.job.Progress,
				"reported", u.percent,
				"stage", u.stage)
		}
		e.job.Progress = u.percent
		e.job.Stage = u.stage
		e.job.StageText = u.stageText
		q.emitLocked(ctx, q.newEvent(events.JobProgress, e))

	case updateLog:
		ev := q.newEvent(events.JobLog, e)
		ev.Message = u.message
		q.emitLocked(ctx, ev)
	}
}

// settle records the terminal state, frees the slot and promotes the next
// pending job. A failed job never stalls the queue.
func (q *Queue[P, R]) settle(ctx context.Context, e *entry[P, R], result R, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	e.fn = nil

	if err != nil {
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
		e.job.FailedAt = &now
		q.emitLocked(ctx, q.newEvent(events.JobFailed, e))
		q.logger.Error("job failed", "job_id", e.job.ID, "error", err)
	} else {
		e.job.Status = StatusCompleted
		e.job.Result = &result
		e.job.CompletedAt = &now

		ev := q.newEvent(events.JobCompleted, e)
		if summary, ok := any(result).(Summary); ok {
			ev.Title = summary.Title()
			ev.SavedFiles = summary.Files()
		}
		q.emitLocked(ctx, ev)
		q.logger.Info("job completed", "job_id", e.job.ID)
	}

	q.pushCompletedLocked(e)
	q.current = nil
	q.dispatchLocked(ctx)
}
