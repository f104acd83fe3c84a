// Package speakers keeps one canonical document per speaker.
package speakers

import (
	"context"
	"errors"
	"fmt"

	"metacasts/pkg/domain"
	"metacasts/pkg/store"
)

// Resolver merges observed speaker identities into the people partition.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver writing to s.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Merge overlays id and name onto the stored speaker document, creating it
// if needed. Every other key of an existing document is kept as is.
func (r *Resolver) Merge(ctx context.Context, id, name string) error {
	if id == "" {
		return errors.New("speaker id is required")
	}

	existing, err := r.store.Get(ctx, store.People, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load speaker %s: %w", id, err)
	}

	merged := store.Overlay(existing, store.Document{"id": id, "name": name})
	if err := r.store.Put(ctx, store.People, id, merged); err != nil {
		return fmt.Errorf("save speaker %s: %w", id, err)
	}
	return nil
}

// Load returns the speaker document for id, or nil when there is none.
func (r *Resolver) Load(ctx context.Context, id string) (store.Document, error) {
	doc, err := r.store.Get(ctx, store.People, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// All decodes every speaker document, keyed by id.
func (r *Resolver) All(ctx context.Context) (map[string]domain.Speaker, error) {
	keys, err := r.store.Keys(ctx, store.People)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	out := make(map[string]domain.Speaker, len(keys))
	for _, key := range keys {
		doc, err := r.store.Get(ctx, store.People, key)
		if err != nil {
			return nil, fmt.Errorf("load speaker %s: %w", key, err)
		}
		var sp domain.Speaker
		if err := store.Decode(doc, &sp); err != nil {
			return nil, fmt.Errorf("decode speaker %s: %w", key, err)
		}
		if sp.ID == "" {
			sp.ID = key
		}
		out[sp.ID] = sp
	}
	return out, nil
}
