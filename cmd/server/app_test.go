package main

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

	"github.com/phrazzld/podscribe/internal/config"
	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "info"},
		Queue: config.QueueConfig{
			CompletedLimit:      50,
			SnapshotRecentLimit: 10,
			BroadcastInterval:   time.Second,
			ProgressBuffer:      16,
		},
		History: config.HistoryConfig{
			Backend:    config.HistoryBackendFile,
			Path:       "/data/history.json",
			MaxRecords: 100,
		},
		Pipeline: config.PipelineConfig{WorkDir: "/data/work"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApplication_FileBackend(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	app, err := newApplicationWithFs(context.Background(), testConfig(), testLogger(), fs)
	require.NoError(t, err)
	defer app.cleanup()

	assert.Nil(t, app.db)
	assert.Nil(t, app.redis)
	assert.Nil(t, app.nats)

	exists, err := afero.DirExists(fs, "/data/work")
	require.NoError(t, err)
	assert.True(t, exists, "work directory is created")
}

func TestNewApplication_RecoversInterruptedJobs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	persister, err := history.NewFilePersister(fs, "/data/history.json")
	require.NoError(t, err)
	require.NoError(t, persister.Save(context.Background(), []history.Record{
		{ID: "a", URL: "https://example.com/a", Status: history.StatusProcessing},
		{ID: "b", URL: "https://example.com/b", Status: history.StatusQueued},
		{ID: "c", URL: "https://example.com/c", Status: history.StatusCompleted, Progress: 100},
	}))

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app, err := newApplicationWithFs(context.Background(), testConfig(), logger, fs)
	require.NoError(t, err)
	defer app.cleanup()

	assert.Contains(t, logs.String(), `"msg":"job was processing when the server stopped","record_id":"a"`)
	assert.NotContains(t, logs.String(), `"record_id":"b"`)

	for _, id := range []string{"a", "b"} {
		rec, err := app.store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, history.StatusFailed, rec.Status)
		require.NotNil(t, rec.Error)
		assert.Equal(t, history.InterruptedError, *rec.Error)
	}

	rec, err := app.store.Get("c")
	require.NoError(t, err)
	assert.Equal(t, history.StatusCompleted, rec.Status)
}

func TestNewApplication_UnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.History.Backend = "sqlite"

	_, err := newApplicationWithFs(context.Background(), cfg, testLogger(), afero.NewMemMapFs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown history backend "sqlite"`)
}

func TestSetupRouter_UnconfiguredPipelineFailsJob(t *testing.T) {
	t.Parallel()

	app, err := newApplicationWithFs(context.Background(), testConfig(), testLogger(), afero.NewMemMapFs())
	require.NoError(t, err)
	defer app.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.queue.Start(ctx))
	defer app.queue.Stop()

	router := app.setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	job, err := app.queue.Submit(ctx, domain.NewPayload("https://example.com/ep1", "", "", ""), app.jobFunc)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rec, err := app.store.Get(job.ID)
		return err == nil && rec.Status == history.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue/task/"+job.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Task struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed", body.Task.Status)
	assert.Contains(t, body.Task.Error, "download failed")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `podscribe_job_events_total{type="failed"} 1`)
}
