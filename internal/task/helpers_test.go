package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/events"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	url string
}

func (p testPayload) SourceURL() string { return p.url }

func (p testPayload) Validate() error {
	if p.url == "" {
		return errors.New("url is required")
	}
	return nil
}

type testResult struct {
	title string
	files []domain.SavedFile
}

func (r testResult) Title() string             { return r.title }
func (r testResult) Files() []domain.SavedFile { return r.files }

type testQueue = Queue[testPayload, testResult]
type testJob = Job[testPayload, testResult]
type testFunc = JobFunc[testPayload, testResult]

// recordingEmitter captures every event the queue emits
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (r *recordingEmitter) EmitEvent(ctx context.Context, event *events.JobEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *recordingEmitter) snapshot() []events.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.JobEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingEmitter) ofType(t events.JobEventType) []events.JobEvent {
	var out []events.JobEvent
	for _, ev := range r.snapshot() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingEmitter) forJob(id string) []events.JobEventType {
	var out []events.JobEventType
	for _, ev := range r.snapshot() {
		if ev.JobID == id {
			out = append(out, ev.Type)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestQueue(t *testing.T, config QueueConfig) (*testQueue, *recordingEmitter) {
	t.Helper()
	rec := &recordingEmitter{}
	q := NewQueue[testPayload, testResult](rec, config, testLogger())
	t.Cleanup(q.Stop)
	return q, rec
}

func newStartedQueue(t *testing.T, config QueueConfig) (*testQueue, *recordingEmitter) {
	t.Helper()
	q, rec := newTestQueue(t, config)
	require.NoError(t, q.Start(context.Background()))
	return q, rec
}

func succeed(title string) testFunc {
	return func(ctx context.Context, job testJob, progress *Reporter) (testResult, error) {
		return testResult{title: title}, nil
	}
}

// gate blocks job functions until released
type gate struct {
	started chan string
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (g *gate) fn() testFunc {
	return func(ctx context.Context, job testJob, progress *Reporter) (testResult, error) {
		g.started <- job.ID
		select {
		case <-g.release:
			return testResult{title: job.Payload.url}, nil
		case <-ctx.Done():
			return testResult{}, ctx.Err()
		}
	}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

func (g *gate) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case id := <-g.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job to start")
		return ""
	}
}

func waitForStatus(t *testing.T, q *testQueue, id string, status Status) testJob {
	t.Helper()
	var job testJob
	require.Eventually(t, func() bool {
		var err error
		job, err = q.Job(id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, status)
	return job
}

func submit(t *testing.T, q *testQueue, url string, fn testFunc) testJob {
	t.Helper()
	job, err := q.Submit(context.Background(), testPayload{url: url}, fn)
	require.NoError(t, err)
	return job
}
