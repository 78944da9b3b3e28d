package natsbus

import (
	"context"
	"fmt"

	"github.com/phrazzld/podscribe/internal/events"
)

// DefaultSubject prefixes lifecycle event subjects when none is configured.
const DefaultSubject = "podscribe.jobs"

// JSONPublisher is the subset of Client the event publisher needs.
type JSONPublisher interface {
	PublishJSON(subject string, v any) error
}

// EventPublisher forwards queue lifecycle events to NATS on
// "<subject>.<event type>". Log events are high volume and stay local.
type EventPublisher struct {
	bus     JSONPublisher
	subject string
}

// NewEventPublisher creates a publisher. An empty subject selects
// DefaultSubject.
func NewEventPublisher(bus JSONPublisher, subject string) *EventPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &EventPublisher{bus: bus, subject: subject}
}

// Subject returns the subject an event type is published on.
func (p *EventPublisher) Subject(eventType events.JobEventType) string {
	return p.subject + "." + string(eventType)
}

// HandleEvent implements events.EventHandler.
func (p *EventPublisher) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	if event.Type == events.JobLog {
		return nil
	}

	if err := p.bus.PublishJSON(p.Subject(event.Type), event); err != nil {
		return fmt.Errorf("failed to publish %s event for job %s: %w", event.Type, event.JobID, err)
	}
	return nil
}
