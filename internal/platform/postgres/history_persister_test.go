package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/podscribe/internal/ciutil"
	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPersister(t *testing.T) *HistoryPersister {
	t.Helper()

	url := ciutil.IntegrationDatabaseURL(t)

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(ctx, url, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, logger))
	_, err = db.ExecContext(ctx, `DELETE FROM history_records`)
	require.NoError(t, err)

	return NewHistoryPersister(db)
}

func TestHistoryPersister_SaveLoad(t *testing.T) {
	p := setupPersister(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	failure := "download failed"
	want := []history.Record{
		{
			ID:         "newest",
			URL:        "https://example.com/2",
			Title:      "Two",
			Status:     history.StatusCompleted,
			Progress:   100,
			Stage:      "complete",
			CreatedAt:  now,
			UpdatedAt:  now,
			SavedFiles: []domain.SavedFile{{Type: "transcript", Filename: "two.md", Size: 12}},
		},
		{
			ID:         "oldest",
			URL:        "https://example.com/1",
			Status:     history.StatusFailed,
			CreatedAt:  now.Add(-time.Minute),
			UpdatedAt:  now,
			SavedFiles: []domain.SavedFile{},
			Error:      &failure,
		},
	}

	require.NoError(t, p.Save(ctx, want))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces rather than appends
	require.NoError(t, p.Save(ctx, want[1:]))
	got, err = p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "oldest", got[0].ID)
}

func TestHistoryPersister_DuplicateIDRollsBack(t *testing.T) {
	p := setupPersister(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, p.Save(ctx, []history.Record{{ID: "keep", Status: history.StatusQueued, CreatedAt: now, UpdatedAt: now}}))

	dup := history.Record{ID: "dup", Status: history.StatusQueued, CreatedAt: now, UpdatedAt: now}
	err := p.Save(ctx, []history.Record{dup, dup})
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	got, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].ID)
}
