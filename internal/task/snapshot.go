package task

import "time"

// Snapshot is a point-in-time projection of queue state. It never carries
// payloads or result bodies so it stays cheap to build on every tick.
type Snapshot struct {
	PendingCount    int           `json:"pendingCount"`
	IsProcessing    bool          `json:"isProcessing"`
	Current         *CurrentJob   `json:"current"`
	Pending         []PendingJob  `json:"pending"`
	RecentCompleted []FinishedJob `json:"recentCompleted"`
}

// CurrentJob describes the job in the processing slot.
type CurrentJob struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"`
	Stage     string     `json:"stage"`
	StageText string     `json:"stageText"`
	StartedAt *time.Time `json:"startedAt"`
}

// PendingJob describes a queued job and its place in line.
type PendingJob struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Status   Status    `json:"status"`
	Position int       `json:"position"`
	QueuedAt time.Time `json:"queuedAt"`
}

// FinishedJob describes an entry of the completed list.
type FinishedJob struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Status     Status     `json:"status"`
	FinishedAt *time.Time `json:"finishedAt"`
	Error      string     `json:"error,omitempty"`
}

// Snapshot returns the current queue state.
func (q *Queue[P, R]) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{
		PendingCount:    len(q.pending),
		IsProcessing:    q.current != nil,
		Pending:         make([]PendingJob, 0, len(q.pending)),
		RecentCompleted: make([]FinishedJob, 0, min(len(q.completed), q.config.SnapshotRecentLimit)),
	}

	if c := q.current; c != nil {
		snap.Current = &CurrentJob{
			ID:        c.job.ID,
			URL:       c.job.Payload.SourceURL(),
			Status:    c.job.Status,
			Progress:  c.job.Progress,
			Stage:     c.job.Stage,
			StageText: c.job.StageText,
			StartedAt: c.job.StartedAt,
		}
	}

	for _, e := range q.pending {
		snap.Pending = append(snap.Pending, PendingJob{
			ID:       e.job.ID,
			URL:      e.job.Payload.SourceURL(),
			Status:   e.job.Status,
			Position: e.job.Position,
			QueuedAt: e.job.QueuedAt,
		})
	}

	for i, e := range q.completed {
		if i >= q.config.SnapshotRecentLimit {
			break
		}
		snap.RecentCompleted = append(snap.RecentCompleted, FinishedJob{
			ID:         e.job.ID,
			URL:        e.job.Payload.SourceURL(),
			Status:     e.job.Status,
			FinishedAt: e.job.FinishedAt(),
			Error:      e.job.Error,
		})
	}

	return snap
}
