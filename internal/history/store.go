package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/podscribe/internal/domain"
)

// Persister loads and saves the whole record sequence, most recent first.
type Persister interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// Config holds configuration for the record store
type Config struct {
	// MaxRecords caps the sequence; the oldest records are evicted
	MaxRecords int
}

// DefaultMaxRecords is used when Config.MaxRecords is not positive.
const DefaultMaxRecords = 100

// Store is the cached record sequence plus its persister.
//
// Persistence failures are logged and never returned. The cache stays
// authoritative and the next mutation rewrites the whole sequence.
type Store struct {
	mu        sync.RWMutex
	records   []Record
	persister Persister
	max       int
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates a store and loads persisted records. A load failure is
// logged and leaves the store empty; it never fails startup.
func NewStore(ctx context.Context, persister Persister, config Config, logger *slog.Logger) *Store {
	if config.MaxRecords <= 0 {
		config.MaxRecords = DefaultMaxRecords
	}

	s := &Store{
		persister: persister,
		max:       config.MaxRecords,
		logger:    logger.With("component", "history_store"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	records, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load history, starting empty", "error", err)
		return
	}

	if len(records) > s.max {
		records = records[:s.max]
	}
	for i := range records {
		if records[i].SavedFiles == nil {
			records[i].SavedFiles = []domain.SavedFile{}
		}
	}

	s.records = records
	s.logger.Info("history loaded", "record_count", len(records))
}

// persistLocked writes the current sequence. Caller holds the write lock.
func (s *Store) persistLocked(ctx context.Context) {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = clone(r)
	}

	if err := s.persister.Save(ctx, out); err != nil {
		s.logger.Error("failed to persist history",
			"record_count", len(out),
			"error", err)
	}
}

// Append inserts a record at the head of the sequence. Unset fields get
// defaults: a new ID, status processing, the current time and an empty
// file list.
func (s *Store) Append(ctx context.Context, rec Record) Record {
	now := s.now()
	if rec.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			rec.ID = id.String()
		} else {
			rec.ID = uuid.NewString()
		}
	}
	if rec.Status == "" {
		rec.Status = StatusProcessing
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec = clone(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]Record{rec}, s.records...)
	if len(s.records) > s.max {
		s.records = s.records[:s.max]
	}
	s.persistLocked(ctx)

	return clone(rec)
}

// Update merges patch into the record with the given ID.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	patch.apply(&s.records[i])
	s.records[i].UpdatedAt = s.now()
	s.persistLocked(ctx)

	return clone(s.records[i]), nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return clone(s.records[i]), nil
}

// List filters by status and returns one page of records, most recent first.
func (s *Store) List(opts ListOptions) Page {
	if opts.Page < 0 {
		opts.Page = 0
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, r := range s.records {
		if opts.Status == "" || r.Status == opts.Status {
			matched = append(matched, r)
		}
	}

	page := Page{
		Total:    len(matched),
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Records:  []Record{},
	}

	if len(matched) == 0 || opts.Page > (len(matched)-1)/opts.PageSize {
		return page
	}
	start := opts.Page * opts.PageSize
	end := min(start+opts.PageSize, len(matched))
	for _, r := range matched[start:end] {
		page.Records = append(page.Records, clone(r))
	}
	return page
}

// Remove deletes the record with the given ID.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	s.persistLocked(ctx)
	return nil
}

// Clear empties the sequence.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.persistLocked(ctx)
}

// Processing returns the records still marked processing.
func (s *Store) Processing() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, r := range s.records {
		if r.Status == StatusProcessing {
			out = append(out, clone(r))
		}
	}
	return out
}

// RecoverInterrupted marks every record a previous process left queued or
// processing as failed. Job functions are closures and cannot be resumed
// after a restart. It returns the number of records marked.
func (s *Store) RecoverInterrupted(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for i := range s.records {
		r := &s.records[i]
		if r.Status != StatusQueued && r.Status != StatusProcessing {
			continue
		}
		r.Status = StatusFailed
		r.Error = ptr(InterruptedError)
		r.UpdatedAt = now
		count++
	}

	if count > 0 {
		s.persistLocked(ctx)
		s.logger.Warn("marked interrupted jobs as failed", "record_count", count)
	}
	return count
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
