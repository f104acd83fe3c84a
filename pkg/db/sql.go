package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"metacasts/pkg/store"
)

const createRecordsTable = `CREATE TABLE IF NOT EXISTS records (
	partition TEXT NOT NULL,
	key TEXT NOT NULL,
	doc JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (partition, key)
)`

// SQLStore is a store.Store over a single "records" table. It works with
// any DBProvider, so a plain Postgres server and Supabase share one code path.
type SQLStore struct {
	provider DBProvider
	closer   func() error
}

// NewSQLStore makes sure the records table exists. closer, if not nil, is
// called by Close.
func NewSQLStore(ctx context.Context, provider DBProvider, closer func() error) (*SQLStore, error) {
	if provider == nil || provider.DB() == nil {
		return nil, fmt.Errorf("sql store requires a connected database")
	}
	if _, err := provider.DB().ExecContext(ctx, createRecordsTable); err != nil {
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &SQLStore{provider: provider, closer: closer}, nil
}

// Get implements store.Store.
func (s *SQLStore) Get(ctx context.Context, p store.Partition, key string) (store.Document, error) {
	var raw []byte
	err := s.provider.DB().QueryRowContext(ctx,
		`SELECT doc FROM records WHERE partition = $1 AND key = $2`, string(p), key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", p, key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", p, key, err)
	}

	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", p, key, err)
	}
	return doc, nil
}

// Put implements store.Store.
func (s *SQLStore) Put(ctx context.Context, p store.Partition, key string, doc store.Document) error {
	raw, err := json.Marshal(store.NormalizeDocument(doc))
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", p, key, err)
	}
	_, err = s.provider.DB().ExecContext(ctx, `
		INSERT INTO records (partition, key, doc, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (partition, key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		string(p), key, string(raw))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", p, key, err)
	}
	return nil
}

// Keys implements store.Store.
func (s *SQLStore) Keys(ctx context.Context, p store.Partition) ([]string, error) {
	rows, err := s.provider.DB().QueryContext(ctx,
		`SELECT key FROM records WHERE partition = $1 ORDER BY key`, string(p))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if store.IsReserved(key) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close implements store.Store.
func (s *SQLStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
