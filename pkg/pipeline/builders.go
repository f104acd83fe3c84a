package pipeline

import (
	"fmt"
	"log/slog"

	"metacasts/pkg/config"
	"metacasts/pkg/content"
	"metacasts/pkg/httpclient"
	"metacasts/pkg/metrics"
	"metacasts/pkg/probe"
	"metacasts/pkg/store"
)

// ConfigPipelineBuilder builds an ingestion pipeline from configuration.
// Pipeline: landing page → [talk links] → [talk pages, one at a time] → store
func ConfigPipelineBuilder(cfg *config.Config, s store.Store, m *metrics.Metrics, log *slog.Logger) (*Pipeline, error) {
	policy, err := ParsePolicy(cfg.Ingest.FetchFailurePolicy)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	opts := []httpclient.Option{httpclient.WithTimeout(cfg.Source.Timeout())}
	if cfg.Source.UserAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(cfg.Source.UserAgent))
	}
	fetcher := content.NewClient(cfg.Source.BaseURL, httpclient.NewClient(httpclient.JSON, opts...))

	collection := cfg.Collection
	return NewPipeline(fetcher, s, Options{
		Collection:     collection.Name,
		Abbreviation:   collection.Abbreviation,
		URIPrefix:      collection.URIPrefix,
		Honorifics:     cfg.Ingest.Honorifics,
		Policy:         policy,
		Delay:          cfg.Source.RequestDelay(),
		ProbeDurations: cfg.Ingest.ProbeDurations,
		Season:         collection.SeasonFor,
	},
		WithMetrics(m),
		WithLogger(log),
		WithProber(probe.FFProbe{Binary: cfg.Durations.FFProbePath, Timeout: cfg.Durations.Timeout()}),
	), nil
}
