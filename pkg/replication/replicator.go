// Package replication copies every record of one store into another, for
// example from the YAML tree into Postgres or Mongo.
package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"

	"metacasts/pkg/domain"
	"metacasts/pkg/logging"
	"metacasts/pkg/metrics"
	"metacasts/pkg/store"
)

const (
	processBatchSize = 100
	numWorkers       = 5
)

// Config wires the replication dependencies.
type Config struct {
	From    store.Store
	To      store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Replicator replicates documents between two stores. Target documents are
// replaced by the source version.
type Replicator struct {
	from    store.Store
	to      store.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Result counts the documents copied per partition.
type Result map[store.Partition]int

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.From == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.To == nil {
		return nil, fmt.Errorf("target store is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Replicator{
		from:    cfg.From,
		to:      cfg.To,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}, nil
}

// Copy replicates every partition, including the scoped _artist, _album and
// _season documents of every folder that holds talks.
func (r *Replicator) Copy(ctx context.Context) (Result, error) {
	result := Result{}
	for _, p := range store.Partitions {
		keys, err := r.keys(ctx, p)
		if err != nil {
			return result, err
		}
		r.log.Info("replicating partition", "partition", p, "documents", len(keys))

		copied, err := r.processBatches(ctx, p, keys)
		result[p] = copied
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// keys lists the partition's documents. Reserved documents are not listed
// by Store.Keys, so for episodes they are probed in every ancestor folder.
func (r *Replicator) keys(ctx context.Context, p store.Partition) ([]string, error) {
	keys, err := r.from.Keys(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, err)
	}
	if p != store.Episodes {
		return keys, nil
	}

	scopes := map[string]bool{"": true}
	for _, key := range keys {
		for dir := path.Dir(key); dir != "." && dir != "/"; dir = path.Dir(dir) {
			scopes[dir] = true
		}
	}

	var reserved []string
	for scope := range scopes {
		for _, name := range []string{domain.ArtistDoc, domain.AlbumDoc, domain.SeasonDoc} {
			key := name
			if scope != "" {
				key = scope + "/" + name
			}
			_, err := r.from.Get(ctx, p, key)
			switch {
			case err == nil:
				reserved = append(reserved, key)
			case errors.Is(err, store.ErrNotFound):
			default:
				return nil, fmt.Errorf("probe %s: %w", key, err)
			}
		}
	}
	sort.Strings(reserved)
	return append(reserved, keys...), nil
}

// processBatches copies keys in batches in parallel and returns the number
// of documents written. The first batch error stops the run.
func (r *Replicator) processBatches(ctx context.Context, p store.Partition, keys []string) (int, error) {
	type batchJob struct {
		batch []string
		start int
		end   int
	}

	type batchResult struct {
		copied int
		err    error
	}

	numBatches := (len(keys) + processBatchSize - 1) / processBatchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(keys); start += processBatchSize {
		end := min(start+processBatchSize, len(keys))
		jobs <- batchJob{batch: keys[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				copied, err := r.processBatch(ctx, p, job.batch, job.start, job.end)
				results <- batchResult{copied: copied, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	total := 0
	var firstErr error
	for res := range results {
		total += res.copied
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
	}

	r.log.Info("partition replicated", "partition", p, "copied", total, "total", len(keys))
	return total, firstErr
}

func (r *Replicator) processBatch(ctx context.Context, p store.Partition, batch []string, start, end int) (int, error) {
	r.log.Debug("processing batch", "partition", p, "start", start, "end", end)

	copied := 0
	for _, key := range batch {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		doc, err := r.from.Get(ctx, p, key)
		if err != nil {
			return copied, fmt.Errorf("read %s/%s in batch [%d:%d]: %w", p, key, start, end, err)
		}
		if err := r.to.Put(ctx, p, key, doc); err != nil {
			return copied, fmt.Errorf("write %s/%s in batch [%d:%d]: %w", p, key, start, end, err)
		}
		copied++
		r.metrics.DocsReplicated.WithLabelValues(string(p)).Inc()
	}
	return copied, nil
}
