package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"metacasts/pkg/logging"
	"metacasts/pkg/metrics"
	"metacasts/pkg/probe"
	"metacasts/pkg/store"
)

// Summary counts the outcomes of a duration run.
type Summary struct {
	Filled  int
	Skipped int
	Absent  int
	Errors  int
}

// Manager manages workers and distributes talk keys to them
type Manager struct {
	workerCount int
	store       store.Store
	prober      probe.Prober
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewManager creates a new manager
func NewManager(workerCount int, s store.Store, p probe.Prober, m *metrics.Metrics, log *slog.Logger) *Manager {
	if workerCount < 1 {
		workerCount = 1
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		workerCount: workerCount,
		store:       s,
		prober:      p,
		metrics:     m,
		log:         log,
	}
}

// FillDurations probes every talk in keys that has no duration yet. Each key
// is handled by exactly one worker.
func (m *Manager) FillDurations(ctx context.Context, keys []string) (Summary, error) {
	jobChan := make(chan string, len(keys))
	for _, key := range keys {
		jobChan <- key
	}
	close(jobChan)

	var wg sync.WaitGroup

	type result struct {
		key      string
		outcome  Outcome
		workerID int
		err      error
	}
	resultsChan := make(chan result, len(keys))

	for i := 0; i < m.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			w := NewWorker(m.store, m.prober)
			for key := range jobChan {
				if ctx.Err() != nil {
					return
				}
				outcome, err := w.FillDuration(ctx, key)
				resultsChan <- result{key: key, outcome: outcome, workerID: workerID, err: err}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var summary Summary
	for res := range resultsChan {
		switch {
		case res.err != nil:
			summary.Errors++
			m.log.Error("duration fill failed", "worker", res.workerID, "key", res.key, "error", res.err)
		case res.outcome == Filled:
			summary.Filled++
			m.metrics.DurationsProbed.WithLabelValues("ok").Inc()
			m.log.Debug("duration filled", "key", res.key)
		case res.outcome == Absent:
			summary.Absent++
			m.metrics.DurationsProbed.WithLabelValues("absent").Inc()
			m.log.Warn("duration unavailable", "key", res.key)
		default:
			summary.Skipped++
		}
	}

	m.log.Info("durations complete",
		"filled", summary.Filled,
		"skipped", summary.Skipped,
		"absent", summary.Absent,
		"errors", summary.Errors,
		"total", len(keys),
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.Errors > 0 && summary.Filled == 0 && summary.Skipped == 0 {
		return summary, fmt.Errorf("all %d talks failed to process", summary.Errors)
	}
	return summary, nil
}
