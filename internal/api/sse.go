package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventWriter frames values as server-sent events.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// startEventStream writes the event stream headers. It fails when the
// response cannot be flushed incrementally.
func startEventStream(w http.ResponseWriter) (*eventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer %T does not support flushing", w)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &eventWriter{w: w, flusher: flusher}, nil
}

// send writes v as one "data:" frame and flushes it.
func (e *eventWriter) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}
