package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilePersister stores the record sequence as an indented JSON array.
// Writes go to a temporary file in the same directory which is then
// renamed over the target, so readers never see a partial file.
type FilePersister struct {
	fs   afero.Fs
	path string
}

// NewFilePersister creates a persister writing to path on fs. The parent
// directory is created if it does not exist.
func NewFilePersister(fs afero.Fs, path string) (*FilePersister, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FilePersister{fs: fs, path: path}, nil
}

// Load reads the sequence. A missing file is an empty sequence.
func (p *FilePersister) Load(ctx context.Context) ([]Record, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history file: %w", err)
	}
	return records, nil
}

// Save replaces the file with the given sequence.
func (p *FilePersister) Save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := afero.TempFile(p.fs, filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = p.fs.Remove(tmpName)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = p.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temp history file: %w", err)
	}
	if err := p.fs.Rename(tmpName, p.path); err != nil {
		_ = p.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
