package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"

	"metacasts/pkg/store"
)

const (
	recordsTable    = "records"
	recordsConflict = "partition,key"
	// defaultPageSize matches the max-rows cap of a stock Supabase project.
	defaultPageSize = 1000
)

type recordRow struct {
	Partition string         `json:"partition"`
	Key       string         `json:"key"`
	Doc       store.Document `json:"doc"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RESTStore is a store.Store over the "records" table reached through the
// Supabase REST API. The table must already exist; see createRecordsTable.
// The REST client takes no context, so ctx is only checked before each call.
type RESTStore struct {
	client   *supabase.Client
	pageSize int
	now      func() time.Time
}

// NewRESTStore wraps an initialized Supabase SDK client.
func NewRESTStore(client *supabase.Client) *RESTStore {
	return &RESTStore{client: client, pageSize: defaultPageSize, now: time.Now}
}

// Get implements store.Store.
func (s *RESTStore) Get(ctx context.Context, p store.Partition, key string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, _, err := s.client.From(recordsTable).
		Select("doc", "", false).
		Eq("partition", string(p)).
		Eq("key", key).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", p, key, err)
	}

	var rows []recordRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", p, key, err)
	}
	if len(rows) == 0 || rows[0].Doc == nil {
		return nil, fmt.Errorf("%s/%s: %w", p, key, store.ErrNotFound)
	}
	return rows[0].Doc, nil
}

// Put implements store.Store.
func (s *RESTStore) Put(ctx context.Context, p store.Partition, key string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Encoded here so a bad document does not poison the shared client error.
	body, err := json.Marshal([]recordRow{{
		Partition: string(p),
		Key:       key,
		Doc:       store.NormalizeDocument(doc),
		UpdatedAt: s.now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", p, key, err)
	}
	_, _, err = s.client.From(recordsTable).
		Upsert(json.RawMessage(body), recordsConflict, "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", p, key, err)
	}
	return nil
}

// Keys implements store.Store. Rows are read in pages ordered by key.
func (s *RESTStore) Keys(ctx context.Context, p store.Partition) ([]string, error) {
	var keys []string
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, _, err := s.client.From(recordsTable).
			Select("key", "", false).
			Eq("partition", string(p)).
			Order("key", &postgrest.OrderOpts{Ascending: true}).
			Range(offset, offset+s.pageSize-1, "").
			Execute()
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", p, err)
		}

		var rows []recordRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode %s keys: %w", p, err)
		}
		for _, r := range rows {
			if !store.IsReserved(r.Key) {
				keys = append(keys, r.Key)
			}
		}
		if len(rows) < s.pageSize {
			return keys, nil
		}
	}
}

// Close implements store.Store.
func (s *RESTStore) Close() error {
	return nil
}
