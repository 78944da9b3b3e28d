package history

import (
	"context"
	"fmt"

	"github.com/phrazzld/podscribe/internal/events"
)

// HandleEvent mirrors a queue lifecycle event into the record sequence.
// The record ID is the job ID. Log events carry nothing durable and are
// ignored.
func (s *Store) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	var patch Patch

	switch event.Type {
	case events.JobSubmitted:
		s.Append(ctx, Record{
			ID:       event.JobID,
			URL:      event.URL,
			Status:   StatusQueued,
			Progress: 0,
		})
		return nil

	case events.JobStarted:
		patch = Patch{Status: ptr(StatusProcessing), Progress: ptr(0)}

	case events.JobRequeued:
		patch = Patch{Status: ptr(StatusQueued), Progress: ptr(0)}

	case events.JobProgress:
		patch = Patch{
			Progress:  ptr(event.Progress),
			Stage:     ptr(event.Stage),
			StageText: ptr(event.StageText),
		}

	case events.JobCompleted:
		patch = Patch{
			Status:     ptr(StatusCompleted),
			Progress:   ptr(100),
			Title:      ptr(event.Title),
			SavedFiles: event.SavedFiles,
		}

	case events.JobFailed:
		patch = Patch{Status: ptr(StatusFailed), Error: ptr(event.Error)}

	case events.JobCancelled:
		patch = Patch{Status: ptr(StatusCancelled)}

	default:
		return nil
	}

	if _, err := s.Update(ctx, event.JobID, patch); err != nil {
		return fmt.Errorf("failed to mirror %s event: %w", event.Type, err)
	}
	return nil
}
