// Package redisstore persists the history record sequence in Redis as a
// single JSON value.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	r "github.com/redis/go-redis/v9"

	"github.com/phrazzld/podscribe/internal/history"
)

// DefaultKey is used when no key is configured.
const DefaultKey = "podscribe:history"

// HistoryPersister stores the whole sequence under one key.
type HistoryPersister struct {
	rdb *r.Client
	key string
}

// New creates a persister on rdb. An empty key selects DefaultKey.
func New(rdb *r.Client, key string) *HistoryPersister {
	if key == "" {
		key = DefaultKey
	}
	return &HistoryPersister{rdb: rdb, key: key}
}

// Connect creates a client for addr and verifies it with a PING.
func Connect(ctx context.Context, addr, password string) (*r.Client, error) {
	rdb := r.NewClient(&r.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Load reads the sequence. A missing key is an empty sequence.
func (p *HistoryPersister) Load(ctx context.Context) ([]history.Record, error) {
	data, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, r.Nil) {
		return []history.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history key %s: %w", p.key, err)
	}

	var records []history.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history key %s: %w", p.key, err)
	}
	return records, nil
}

// Save overwrites the key with the given sequence.
func (p *HistoryPersister) Save(ctx context.Context, records []history.Record) error {
	if records == nil {
		records = []history.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := p.rdb.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write history key %s: %w", p.key, err)
	}
	return nil
}
