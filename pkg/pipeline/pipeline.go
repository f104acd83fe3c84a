// Package pipeline walks one period of the upstream catalog and turns its
// talk pages into talk, speaker and season records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"metacasts/pkg/content"
	"metacasts/pkg/domain"
	"metacasts/pkg/logging"
	"metacasts/pkg/metrics"
	"metacasts/pkg/probe"
	"metacasts/pkg/speakers"
	"metacasts/pkg/store"
	"metacasts/pkg/urls"
)

// Options describes the collection being ingested.
type Options struct {
	// Collection is the store folder of the collection, e.g. "general-conference".
	Collection string
	// Abbreviation prefixes every talk id, e.g. "gc".
	Abbreviation string
	// URIPrefix is the upstream path of the collection.
	URIPrefix string
	// Honorifics are the name prefixes that become the short title.
	Honorifics []string
	// Policy decides how failed talk pages move the sequence counter.
	Policy Policy
	// Delay is waited before every talk page fetch.
	Delay time.Duration
	// ProbeDurations fills the duration of new talks before saving.
	ProbeDurations bool
	// Season derives the season record of a period.
	Season func(domain.Period) domain.Season
}

// Report summarizes one period run.
type Report struct {
	Period   domain.Period
	Links    int
	Talks    int
	Markers  int
	Failures int
	Speakers int
}

// Pipeline ingests periods one at a time. Talk pages are fetched strictly in
// navigation order; the walk state is threaded through Advance.
type Pipeline struct {
	fetcher  content.Fetcher
	store    store.Store
	speakers *speakers.Resolver
	prober   probe.Prober
	metrics  *metrics.Metrics
	log      *slog.Logger
	sleep    Sleeper
	opts     Options
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithProber sets the duration prober used when Options.ProbeDurations is on.
func WithProber(p probe.Prober) Option {
	return func(pl *Pipeline) { pl.prober = p }
}

// WithMetrics sets the counters the pipeline updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) { pl.log = l }
}

// WithSleeper replaces the politeness delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(pl *Pipeline) { pl.sleep = s }
}

// NewPipeline creates a pipeline reading pages from fetcher and writing to s.
func NewPipeline(fetcher content.Fetcher, s store.Store, opts Options, options ...Option) *Pipeline {
	if opts.Policy == "" {
		opts.Policy = Compact
	}
	if opts.Season == nil {
		opts.Season = func(p domain.Period) domain.Season {
			return domain.Season{Label: fmt.Sprintf("%s %d", p.MonthName(), p.Year), StartDate: p.FirstDay()}
		}
	}

	p := &Pipeline{
		fetcher:  fetcher,
		store:    s,
		speakers: speakers.NewResolver(s),
		opts:     opts,
		sleep:    ContextSleep,
	}
	for _, o := range options {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	return p
}

// Run ingests one period. A landing page that cannot be fetched or parsed
// aborts the period; failed talk pages are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, period domain.Period) (Report, error) {
	report := Report{Period: period}
	log := p.log.With("period", period.String())

	landingURI := period.URI(p.opts.URIPrefix)
	landing, err := p.fetcher.FetchPage(ctx, landingURI)
	if err != nil {
		p.metrics.FetchFailures.WithLabelValues("landing").Inc()
		return report, fmt.Errorf("fetch landing page %s: %w", landingURI, err)
	}

	links, err := urls.ExtractTalkLinks(landing.Body)
	if err != nil {
		return report, fmt.Errorf("extract talk links: %w", err)
	}
	links = urls.Keep(links, urls.UnderPath(landingURI))
	report.Links = len(links)
	log.Info("landing page loaded", "uri", landingURI, "links", len(links))

	season := p.opts.Season(period)
	if err := p.saveSeason(ctx, period, season); err != nil {
		return report, err
	}

	state := Initial()
	for _, link := range links {
		if err := p.sleep(ctx, p.opts.Delay); err != nil {
			return report, err
		}

		page, parsed, err := p.fetchTalkPage(ctx, link.Location)
		kind := TalkPage
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			kind = FailedPage
			report.Failures++
			p.metrics.FetchFailures.WithLabelValues("talk").Inc()
			log.Warn("skipping talk page", "uri", link.Location, "error", err)
		case parsed.IsMarker():
			kind = MarkerPage
			report.Markers++
			p.metrics.SessionMarkers.Inc()
			log.Debug("session marker", "uri", link.Location, "session", state.Session+1)
		}

		next, slot := Advance(state, kind, p.opts.Policy)
		state = next
		if slot == nil {
			continue
		}

		if err := p.ingestTalk(ctx, log, period, season, page, parsed, *slot, &report); err != nil {
			return report, err
		}
		report.Talks++
	}

	log.Info("period ingested",
		"talks", report.Talks,
		"markers", report.Markers,
		"failures", report.Failures,
	)
	return report, nil
}

func (p *Pipeline) fetchTalkPage(ctx context.Context, uri string) (*content.Page, content.TalkPage, error) {
	page, err := p.fetcher.FetchPage(ctx, uri)
	if err != nil {
		return nil, content.TalkPage{}, err
	}
	parsed, err := content.ParseTalkPage(page.Body)
	if err != nil {
		return nil, content.TalkPage{}, err
	}
	return page, parsed, nil
}

func (p *Pipeline) saveSeason(ctx context.Context, period domain.Period, season domain.Season) error {
	key := path.Join(p.opts.Collection, period.Folder(), domain.SeasonDoc)
	doc, err := store.Encode(season)
	if err != nil {
		return err
	}
	if err := p.upsert(ctx, key, doc); err != nil {
		return fmt.Errorf("save season: %w", err)
	}
	return nil
}

// upsert writes doc under key, keeping every populated field of an
// existing document.
func (p *Pipeline) upsert(ctx context.Context, key string, doc store.Document) error {
	existing, err := p.store.Get(ctx, store.Episodes, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return p.store.Put(ctx, store.Episodes, key, store.FillMissing(existing, doc))
}
