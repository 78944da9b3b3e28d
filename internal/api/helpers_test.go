package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/events"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/phrazzld/podscribe/internal/stream"
	"github.com/phrazzld/podscribe/internal/task"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nopPersister keeps nothing between runs
type nopPersister struct{}

func (nopPersister) Load(context.Context) ([]history.Record, error) { return nil, nil }
func (nopPersister) Save(context.Context, []history.Record) error  { return nil }

// gatedJob blocks every job until release is closed or the queue stops
type gatedJob struct {
	release chan struct{}
}

func newGatedJob() *gatedJob {
	return &gatedJob{release: make(chan struct{})}
}

func (g *gatedJob) open() { close(g.release) }

func (g *gatedJob) fn(ctx context.Context, job Job, progress *task.Reporter) (domain.Result, error) {
	progress.Report(10, "download", "Downloading audio")
	select {
	case <-g.release:
		return domain.Result{
			PodcastTitle: "Episode One",
			SavedFiles:   []domain.SavedFile{{Type: "transcript", Filename: "episode-one.md", Size: 42}},
			Transcript:   "full transcript text",
		}, nil
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

type testServer struct {
	handler  http.Handler
	queue    *task.Queue[domain.Payload, domain.Result]
	store    *history.Store
	sessions *stream.SessionHub
	gate     *gatedJob
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testLogger()
	ctx := context.Background()

	store := history.NewStore(ctx, nopPersister{}, history.Config{}, logger)
	sessions := stream.NewSessionHub(0, logger)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(store)
	emitter.RegisterHandler(sessions)

	queue := task.NewQueue[domain.Payload, domain.Result](emitter, task.DefaultQueueConfig(), logger)
	require.NoError(t, queue.Start(ctx))
	t.Cleanup(queue.Stop)

	gate := newGatedJob()
	status := stream.NewBroadcaster(queue.Snapshot, time.Hour, logger)

	handler := NewRouter(RouterConfig{
		Queue:   NewQueueHandler(queue, gate.fn, logger),
		History: NewHistoryHandler(store, logger),
		Stream:  NewStreamHandler(status, sessions, logger),
		Logger:  logger,
	})

	return &testServer{
		handler:  handler,
		queue:    queue,
		store:    store,
		sessions: sessions,
		gate:     gate,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) waitForStatus(t *testing.T, id string, want task.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := s.queue.Job(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// errorBody mirrors shared.ErrorResponse on the wire
type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}
