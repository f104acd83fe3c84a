// Package store defines the record store shared by ingestion and synthesis
// and ships the default on-disk YAML backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// Partition separates documents by entity kind.
type Partition string

const (
	// Episodes holds talk documents and the scoped _artist/_album/_season
	// overrides, keyed "{collection}/{period-folder}/{name}".
	Episodes Partition = "episodes"
	// People holds speaker documents keyed by speaker id.
	People Partition = "people"
)

// Partitions lists every partition, in replication order.
var Partitions = []Partition{People, Episodes}

// Document is a loosely typed record. Keys that a typed struct does not know
// about survive a load/modify/save cycle as long as callers work on the map.
type Document map[string]any

// Store is a durable mapping of key to document. Writes are keyed; the store
// does no locking of its own.
type Store interface {
	// Get loads a document, returning ErrNotFound if it does not exist.
	Get(ctx context.Context, p Partition, key string) (Document, error)
	// Put replaces the document stored under key.
	Put(ctx context.Context, p Partition, key string, doc Document) error
	// Keys returns every key of the partition in lexical order, excluding
	// reserved ("_"-prefixed) names.
	Keys(ctx context.Context, p Partition) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// IsReserved reports whether key names a scoped override document.
func IsReserved(key string) bool {
	return strings.HasPrefix(path.Base(key), "_")
}

// Encode converts a typed value into a Document using its json tags.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills v from doc using v's json tags.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(Normalize(doc))
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Overlay returns a new document holding base's keys overwritten by top's,
// key by key. Neither input is modified.
func Overlay(base, top Document) Document {
	out := make(Document, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

// FillMissing returns existing with every key that is absent or empty there
// taken from incoming. Populated keys of existing always win.
func FillMissing(existing, incoming Document) Document {
	out := make(Document, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if cur, ok := out[k]; ok && !isEmpty(cur) {
			continue
		}
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Document:
		return len(t) == 0
	}
	return false
}

// Normalize rewrites decoder-specific shapes (non-string map keys, timestamps)
// into plain JSON-compatible values.
func Normalize(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	}
	return v
}

// NormalizeDocument applies Normalize to every value of a map.
func NormalizeDocument(m map[string]any) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = Normalize(v)
	}
	return doc
}
