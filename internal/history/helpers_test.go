package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryPersister keeps saved sequences in memory and can be told to fail
type memoryPersister struct {
	mu      sync.Mutex
	records []Record
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryPersister) Load(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Record(nil), m.records...), nil
}

func (m *memoryPersister) Save(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	return nil
}

func (m *memoryPersister) saved() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

func (m *memoryPersister) failSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

var errDiskFull = errors.New("disk full")

func newTestStore(t *testing.T, max int) (*Store, *memoryPersister) {
	t.Helper()
	p := &memoryPersister{}
	return NewStore(context.Background(), p, Config{MaxRecords: max}, testLogger()), p
}
