package worker

import (
	"context"
	"fmt"

	"metacasts/pkg/probe"
	"metacasts/pkg/store"
)

// Outcome is what happened to one talk.
type Outcome int

const (
	// Filled means a duration was probed and written.
	Filled Outcome = iota
	// Skipped means the talk already had a duration or has no audio.
	Skipped
	// Absent means probing failed; the talk is left unchanged.
	Absent
)

// Worker fills the duration of single talks.
type Worker struct {
	store  store.Store
	prober probe.Prober
}

// NewWorker creates a new worker
func NewWorker(s store.Store, p probe.Prober) *Worker {
	return &Worker{store: s, prober: p}
}

// FillDuration probes the audio of the talk under key and writes back only
// its duration. Talks that already have one are not touched.
func (w *Worker) FillDuration(ctx context.Context, key string) (Outcome, error) {
	doc, err := w.store.Get(ctx, store.Episodes, key)
	if err != nil {
		return Skipped, fmt.Errorf("load %s: %w", key, err)
	}
	if doc["duration"] != nil {
		return Skipped, nil
	}
	mp3 := audioURL(doc)
	if mp3 == "" {
		return Skipped, nil
	}

	seconds, ok := w.prober.Probe(ctx, mp3)
	if !ok {
		return Absent, nil
	}

	doc["duration"] = seconds
	if err := w.store.Put(ctx, store.Episodes, key, doc); err != nil {
		return Skipped, fmt.Errorf("save %s: %w", key, err)
	}
	return Filled, nil
}

func audioURL(doc store.Document) string {
	links, _ := doc["links"].(map[string]any)
	mp3, _ := links["mp3"].(string)
	return mp3
}
