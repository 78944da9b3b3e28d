package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/history"
)

// HistoryPersister stores the record sequence in the history_records
// table. The position column preserves the most-recent-first order.
type HistoryPersister struct {
	db *sql.DB
}

// NewHistoryPersister creates a persister on an open, migrated database.
func NewHistoryPersister(db *sql.DB) *HistoryPersister {
	return &HistoryPersister{db: db}
}

// Load reads every record ordered by position.
func (p *HistoryPersister) Load(ctx context.Context) ([]history.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, url, title, status, progress, stage, stage_text,
		       saved_files, error, created_at, updated_at
		FROM history_records
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := []history.Record{}
	for rows.Next() {
		var (
			r         history.Record
			status    string
			files     []byte
			errorText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &status, &r.Progress, &r.Stage, &r.StageText,
			&files, &errorText, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", MapError(err))
		}

		r.Status = history.Status(status)
		r.SavedFiles = []domain.SavedFile{}
		if len(files) > 0 {
			if err := json.Unmarshal(files, &r.SavedFiles); err != nil {
				return nil, fmt.Errorf("failed to decode saved files of %s: %w", r.ID, err)
			}
		}
		if errorText.Valid {
			msg := errorText.String
			r.Error = &msg
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.UpdatedAt = r.UpdatedAt.UTC()

		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history records: %w", MapError(err))
	}

	return records, nil
}

// Save replaces the table contents with records inside one transaction.
func (p *HistoryPersister) Save(ctx context.Context, records []history.Record) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM history_records`); err != nil {
		return fmt.Errorf("failed to clear history records: %w", MapError(err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history_records (
			id, position, url, title, status, progress, stage, stage_text,
			saved_files, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", MapError(err))
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		files := r.SavedFiles
		if files == nil {
			files = []domain.SavedFile{}
		}
		var encoded []byte
		encoded, err = json.Marshal(files)
		if err != nil {
			return fmt.Errorf("failed to encode saved files of %s: %w", r.ID, err)
		}

		var errorText sql.NullString
		if r.Error != nil {
			errorText = sql.NullString{String: *r.Error, Valid: true}
		}

		if _, err = stmt.ExecContext(ctx,
			r.ID, i, r.URL, r.Title, string(r.Status), r.Progress, r.Stage, r.StageText,
			string(encoded), errorText, r.CreatedAt, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert history record %s: %w", r.ID, MapError(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history records: %w", err)
	}
	return nil
}
