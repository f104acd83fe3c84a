// Package metadata resolves the artist, album and season a talk inherits
// from the folders above it.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"metacasts/pkg/domain"
	"metacasts/pkg/store"
)

// Resolver computes effective metadata for talk keys. Override documents are
// read once per scope and cached for the lifetime of the resolver.
type Resolver struct {
	store store.Store

	mu    sync.Mutex
	cache map[string]store.Document
}

// NewResolver creates a resolver reading overrides from s.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s, cache: map[string]store.Document{}}
}

// Resolve returns the metadata of the talk stored under talkKey.
//
// Artist and album are the parent scope's override overlaid by the period
// scope's, key by key. The season comes from the period scope alone. Missing
// overrides resolve to empty values.
func (r *Resolver) Resolve(ctx context.Context, talkKey string) (domain.Metadata, error) {
	period := scopeOf(talkKey)
	parent := scopeOf(period)

	var md domain.Metadata

	artist, err := r.inherited(ctx, parent, period, domain.ArtistDoc)
	if err != nil {
		return md, err
	}
	album, err := r.inherited(ctx, parent, period, domain.AlbumDoc)
	if err != nil {
		return md, err
	}
	season, err := r.load(ctx, join(period, domain.SeasonDoc))
	if err != nil {
		return md, err
	}

	if err := store.Decode(artist, &md.Artist); err != nil {
		return md, fmt.Errorf("artist of %s: %w", talkKey, err)
	}
	if err := store.Decode(album, &md.Album); err != nil {
		return md, fmt.Errorf("album of %s: %w", talkKey, err)
	}
	if err := store.Decode(season, &md.Season); err != nil {
		return md, fmt.Errorf("season of %s: %w", talkKey, err)
	}
	return md, nil
}

func (r *Resolver) inherited(ctx context.Context, parent, period, name string) (store.Document, error) {
	var base store.Document
	if parent != period {
		var err error
		if base, err = r.load(ctx, join(parent, name)); err != nil {
			return nil, err
		}
	}
	top, err := r.load(ctx, join(period, name))
	if err != nil {
		return nil, err
	}
	return store.Overlay(base, top), nil
}

func (r *Resolver) load(ctx context.Context, key string) (store.Document, error) {
	r.mu.Lock()
	doc, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := r.store.Get(ctx, store.Episodes, key)
	if errors.Is(err, store.ErrNotFound) {
		doc, err = store.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	r.mu.Lock()
	r.cache[key] = doc
	r.mu.Unlock()
	return doc, nil
}

// scopeOf returns the folder containing key, "" for the root.
func scopeOf(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "/" + name
}

// LoadEpisodes reads every talk of the store, in key order, with its
// resolved metadata attached.
func LoadEpisodes(ctx context.Context, s store.Store, r *Resolver) ([]domain.Episode, error) {
	keys, err := s.Keys(ctx, store.Episodes)
	if err != nil {
		return nil, err
	}

	episodes := make([]domain.Episode, 0, len(keys))
	for _, key := range keys {
		doc, err := s.Get(ctx, store.Episodes, key)
		if err != nil {
			return nil, err
		}
		var ep domain.Episode
		if err := store.Decode(doc, &ep.Talk); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		md, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}

		ep.ID = path.Base(key)
		ep.Key = key
		ep.Source = strings.SplitN(key, "/", 2)[0]
		ep.Folder = path.Base(scopeOf(key))
		ep.Metadata = md
		episodes = append(episodes, ep)
	}
	return episodes, nil
}
