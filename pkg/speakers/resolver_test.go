package speakers

import (
	"context"
	"reflect"
	"testing"

	"metacasts/pkg/store"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenYAML(t.TempDir())
	if err != nil {
		t.Fatalf("OpenYAML failed: %v", err)
	}
	return s
}

func TestMerge_CreatesDocument(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newStore(t))

	if err := r.Merge(ctx, "jeffrey-r-holland", "Jeffrey R. Holland"); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	doc, err := r.Load(ctx, "jeffrey-r-holland")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := store.Document{"id": "jeffrey-r-holland", "name": "Jeffrey R. Holland"}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("doc = %v, want %v", doc, want)
	}
}

func TestMerge_PreservesEnrichment(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := NewResolver(s)

	enriched := store.Document{
		"id":      "dale-g-renlund",
		"name":    "Dale Renlund",
		"photo":   "https://example.org/renlund.jpg",
		"tags":    []any{"apostle"},
		"website": "https://example.org",
	}
	if err := s.Put(ctx, store.People, "dale-g-renlund", enriched); err != nil {
		t.Fatal(err)
	}

	if err := r.Merge(ctx, "dale-g-renlund", "Dale G. Renlund"); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	first, _ := r.Load(ctx, "dale-g-renlund")

	if err := r.Merge(ctx, "dale-g-renlund", "Dale G. Renlund"); err != nil {
		t.Fatalf("second Merge failed: %v", err)
	}
	second, _ := r.Load(ctx, "dale-g-renlund")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Merge is not idempotent: %v vs %v", first, second)
	}
	if second["name"] != "Dale G. Renlund" {
		t.Errorf("Expected name to be updated, got %v", second["name"])
	}
	for _, k := range []string{"photo", "tags", "website"} {
		if !reflect.DeepEqual(second[k], enriched[k]) {
			t.Errorf("Expected %s to be preserved, got %v", k, second[k])
		}
	}
}

func TestMerge_RequiresID(t *testing.T) {
	if err := NewResolver(newStore(t)).Merge(context.Background(), "", "x"); err == nil {
		t.Fatal("Expected error for empty id")
	}
}

func TestLoad_Missing(t *testing.T) {
	doc, err := NewResolver(newStore(t)).Load(context.Background(), "nobody")
	if err != nil || doc != nil {
		t.Errorf("Expected (nil, nil), got (%v, %v)", doc, err)
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newStore(t))
	for id, name := range map[string]string{"jeffrey-r-holland": "Jeffrey R. Holland", "dale-g-renlund": "Dale G. Renlund"} {
		if err := r.Merge(ctx, id, name); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
	}

	all, err := r.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 || all["jeffrey-r-holland"].Name != "Jeffrey R. Holland" {
		t.Errorf("Unexpected speakers %v", all)
	}
}
