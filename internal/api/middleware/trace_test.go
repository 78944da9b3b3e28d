package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/podscribe/internal/api/shared"
	"github.com/phrazzld/podscribe/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID string
	handler := chimw.RequestID(NewTraceMiddleware(base)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			traceID = shared.GetTraceID(r.Context())
			logger.FromContext(r.Context()).Info("inside handler")
			w.WriteHeader(http.StatusNoContent)
		})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue/status", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, traceID)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"request started"`)
	assert.Contains(t, logs, `"msg":"inside handler"`)
	assert.Contains(t, logs, `"trace_id":"`+traceID+`"`)
	assert.Contains(t, logs, `"request_id"`)
}

func TestTraceMiddlewareNilLogger(t *testing.T) {
	t.Parallel()

	called := false
	handler := NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.NotEmpty(t, shared.GetTraceID(r.Context()))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}
