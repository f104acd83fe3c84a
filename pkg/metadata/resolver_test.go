package metadata

import (
	"context"
	"testing"

	"metacasts/pkg/store"
)

type countingStore struct {
	store.Store
	gets map[string]int
}

func (c *countingStore) Get(ctx context.Context, p store.Partition, key string) (store.Document, error) {
	c.gets[key]++
	return c.Store.Get(ctx, p, key)
}

func seed(t *testing.T) *countingStore {
	t.Helper()
	y, err := store.OpenYAML(t.TempDir())
	if err != nil {
		t.Fatalf("OpenYAML failed: %v", err)
	}
	ctx := context.Background()
	docs := map[string]store.Document{
		"general-conference/_artist":                         {"name": "The Church", "logo": "root.png", "website": "https://root.example"},
		"general-conference/_album":                          {"label": "General Conference"},
		"general-conference/2022-april/_artist":              {"logo": "april.png"},
		"general-conference/2022-april/_season":              {"season": 103, "label": "April 2022", "sessions": map[string]any{"1": "Saturday Morning"}},
		"general-conference/2022-april/gc-2022-04-01-01-a":   {"id": "gc-2022-04-01-01-a", "title": "A", "session": 1, "sequence": 1},
		"general-conference/2021-october/gc-2021-10-01-01-b": {"id": "gc-2021-10-01-01-b", "title": "B", "session": 1, "sequence": 1},
	}
	for k, d := range docs {
		if err := y.Put(ctx, store.Episodes, k, d); err != nil {
			t.Fatal(err)
		}
	}
	return &countingStore{Store: y, gets: map[string]int{}}
}

func TestResolve_PeriodWins(t *testing.T) {
	s := seed(t)
	r := NewResolver(s)

	md, err := r.Resolve(context.Background(), "general-conference/2022-april/gc-2022-04-01-01-a")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if md.Artist.Logo != "april.png" {
		t.Errorf("Expected period logo to win, got %q", md.Artist.Logo)
	}
	if md.Artist.Name != "The Church" || md.Artist.Website != "https://root.example" {
		t.Errorf("Expected inherited artist keys, got %+v", md.Artist)
	}
	if md.Album.Label != "General Conference" {
		t.Errorf("Expected inherited album label, got %q", md.Album.Label)
	}
	if md.Season.Season != 103 || md.Season.SessionLabel(1) != "Saturday Morning" {
		t.Errorf("Unexpected season %+v", md.Season)
	}
}

func TestResolve_MissingOverridesAreEmpty(t *testing.T) {
	s := seed(t)
	r := NewResolver(s)

	md, err := r.Resolve(context.Background(), "general-conference/2021-october/gc-2021-10-01-01-b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if md.Season.Season != 0 || md.Season.Label != "" || len(md.Season.Sessions) != 0 {
		t.Errorf("Expected empty season, got %+v", md.Season)
	}
	if md.Artist.Logo != "root.png" {
		t.Errorf("Expected root logo, got %q", md.Artist.Logo)
	}
}

func TestResolve_CachesPerScope(t *testing.T) {
	s := seed(t)
	r := NewResolver(s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(ctx, "general-conference/2022-april/gc-2022-04-01-01-a"); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.gets["general-conference/_artist"]; n != 1 {
		t.Errorf("Expected root artist to be read once, got %d", n)
	}
}

func TestLoadEpisodes(t *testing.T) {
	s := seed(t)
	episodes, err := LoadEpisodes(context.Background(), s, NewResolver(s))
	if err != nil {
		t.Fatalf("LoadEpisodes failed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("Expected 2 episodes, got %d", len(episodes))
	}
	first := episodes[0]
	if first.ID != "gc-2021-10-01-01-b" || first.Folder != "2021-october" || first.Source != "general-conference" {
		t.Errorf("Unexpected first episode %+v", first)
	}
	if episodes[1].Metadata.Season.Label != "April 2022" {
		t.Errorf("Expected season metadata attached, got %+v", episodes[1].Metadata)
	}
}
