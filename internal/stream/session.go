package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/podscribe/internal/events"
)

// SessionEventType identifies a per-session stream message.
type SessionEventType string

const (
	SessionConnected SessionEventType = "connected"
	SessionProgress  SessionEventType = "progress"
	SessionLog       SessionEventType = "log"
)

// DefaultSessionBuffer is the per-subscriber buffer used when none is given.
const DefaultSessionBuffer = 32

// SessionEvent is one message on a session stream.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	JobID     string           `json:"jobId,omitempty"`
	Progress  *int             `json:"progress,omitempty"`
	Stage     string           `json:"stage,omitempty"`
	StageText string           `json:"stageText,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// SessionHub routes job progress and log events to the subscribers of
// each job's session.
type SessionHub struct {
	mu       sync.Mutex
	sessions map[string]map[*SessionSubscription]struct{}
	buffer   int
	logger   *slog.Logger
}

// SessionSubscription receives the events of one session.
type SessionSubscription struct {
	sessionID string
	ch        chan SessionEvent
	done      chan struct{}
	once      sync.Once
	hub       *SessionHub
}

// NewSessionHub creates a hub. A non-positive buffer selects
// DefaultSessionBuffer.
func NewSessionHub(buffer int, logger *slog.Logger) *SessionHub {
	if buffer <= 0 {
		buffer = DefaultSessionBuffer
	}
	return &SessionHub{
		sessions: make(map[string]map[*SessionSubscription]struct{}),
		buffer:   buffer,
		logger:   logger.With("component", "session_hub"),
	}
}

// Register subscribes to a session. The subscription starts with a
// connected event.
func (h *SessionHub) Register(sessionID string) *SessionSubscription {
	s := &SessionSubscription{
		sessionID: sessionID,
		ch:        make(chan SessionEvent, h.buffer),
		done:      make(chan struct{}),
		hub:       h,
	}
	s.ch <- SessionEvent{Type: SessionConnected, SessionID: sessionID}

	h.mu.Lock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[*SessionSubscription]struct{})
		h.sessions[sessionID] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("session subscriber added", "session_id", sessionID)
	return s
}

// Publish delivers ev to every subscriber of the session and returns how
// many received it. Subscribers with a full buffer miss the event.
func (h *SessionHub) Publish(sessionID string, ev SessionEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.sessions[sessionID] {
		select {
		case s.ch <- ev:
			delivered++
		default:
			h.logger.Debug("session subscriber buffer full, event dropped",
				"session_id", sessionID,
				"event_type", ev.Type)
		}
	}
	return delivered
}

// Count returns the number of subscribers of a session.
func (h *SessionHub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

// HandleEvent implements events.EventHandler for queue progress and log
// events. Other event types are ignored.
func (h *SessionHub) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	if event.SessionID == "" {
		return nil
	}

	switch event.Type {
	case events.JobProgress:
		progress := event.Progress
		h.Publish(event.SessionID, SessionEvent{
			Type:      SessionProgress,
			JobID:     event.JobID,
			Progress:  &progress,
			Stage:     event.Stage,
			StageText: event.StageText,
		})
	case events.JobLog:
		h.Publish(event.SessionID, SessionEvent{
			Type:    SessionLog,
			JobID:   event.JobID,
			Message: event.Message,
		})
	}
	return nil
}

func (h *SessionHub) remove(s *SessionSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.sessions[s.sessionID]
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.sessions, s.sessionID)
	}
}

// C returns the channel events are delivered on.
func (s *SessionSubscription) C() <-chan SessionEvent { return s.ch }

// Done is closed when the subscription is closed.
func (s *SessionSubscription) Done() <-chan struct{} { return s.done }

// Close deregisters the subscription. It is safe to call more than once.
func (s *SessionSubscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}
