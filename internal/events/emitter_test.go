package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryEventEmitter(t *testing.T) {
	// Create a minimal logger that discards output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event := NewJobEvent(JobSubmitted, "job-1")

		// Should not error even with no handlers
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewJobEvent(JobStarted, "job-1")
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		// Verify both handlers received the event
		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{
			HandlerError: errors.New("handler error"),
		}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), NewJobEvent(JobFailed, "job-2"))
		assert.EqualError(t, err, "handler error")

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})

	t.Run("handlers run in registration order", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		var order []string
		emitter.RegisterHandler(HandlerFunc(func(ctx context.Context, e *JobEvent) error {
			order = append(order, "first")
			return nil
		}))
		emitter.RegisterHandler(HandlerFunc(func(ctx context.Context, e *JobEvent) error {
			order = append(order, "second")
			return nil
		}))

		assert.NoError(t, emitter.EmitEvent(context.Background(), NewJobEvent(JobProgress, "job-3")))
		assert.Equal(t, []string{"first", "second"}, order)
	})
}

func TestNopEmitter(t *testing.T) {
	assert.NoError(t, NopEmitter{}.EmitEvent(context.Background(), NewJobEvent(JobLog, "x")))
}
