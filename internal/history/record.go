package history

import (
	"time"

	"github.com/phrazzld/podscribe/internal/domain"
)

// Status mirrors the lifecycle status of the job a record tracks.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Record is the durable view of one transcription job.
type Record struct {
	ID         string             `json:"id"`
	URL        string             `json:"url"`
	Title      string             `json:"title"`
	Status     Status             `json:"status"`
	Progress   int                `json:"progress"`
	Stage      string             `json:"stage"`
	StageText  string             `json:"stageText,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	SavedFiles []domain.SavedFile `json:"savedFiles"`
	Error      *string            `json:"error"`
}

// Patch lists the fields of an Update. Nil fields are left unchanged.
type Patch struct {
	Title      *string
	Status     *Status
	Progress   *int
	Stage      *string
	StageText  *string
	SavedFiles []domain.SavedFile
	Error      *string
}

func (p Patch) apply(r *Record) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Progress != nil {
		r.Progress = *p.Progress
	}
	if p.Stage != nil {
		r.Stage = *p.Stage
	}
	if p.StageText != nil {
		r.StageText = *p.StageText
	}
	if p.SavedFiles != nil {
		r.SavedFiles = append([]domain.SavedFile(nil), p.SavedFiles...)
	}
	if p.Error != nil {
		msg := *p.Error
		r.Error = &msg
	}
}

// ListOptions filters and paginates List. Page is 0-based.
type ListOptions struct {
	Status   Status
	Page     int
	PageSize int
}

// DefaultPageSize is used when ListOptions.PageSize is not positive.
const DefaultPageSize = 20

// Page is one page of List results.
type Page struct {
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	Records  []Record `json:"records"`
}

func ptr[T any](v T) *T { return &v }

func clone(r Record) Record {
	out := r
	out.SavedFiles = append([]domain.SavedFile{}, r.SavedFiles...)
	if r.Error != nil {
		out.Error = ptr(*r.Error)
	}
	return out
}
