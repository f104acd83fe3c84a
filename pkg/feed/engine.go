// Package feed synthesizes podcast RSS documents from the talks of the
// record store.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"metacasts/pkg/config"
	"metacasts/pkg/domain"
	"metacasts/pkg/logging"
	"metacasts/pkg/metrics"
)

// Feed kinds, as reported in Written.Kind and the discovery index.
const (
	KindPeriod    = "period"
	KindAggregate = "aggregate"
	KindPeople    = "people"
)

// Written describes one feed file produced by Generate.
type Written struct {
	// Path is relative to the output directory, e.g. "general-conference/2022-april.rss".
	Path  string
	Kind  string
	Title string
	Items int
}

// Engine writes feed files below cfg.OutDir.
type Engine struct {
	cfg     config.FeedsConfig
	now     func() time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
	title   cases.Caser
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for unparseable publish dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics sets the counters the engine updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a feed engine.
func NewEngine(cfg config.FeedsConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		now:   time.Now,
		title: cases.Title(language.English),
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e
}

// DefaultImage is the absolute address of the fallback artwork.
func (e *Engine) DefaultImage() string {
	img := e.cfg.DefaultImage
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	return strings.TrimRight(e.cfg.BaseURL, "/") + "/" + strings.TrimLeft(img, "/")
}

type group struct {
	name     string
	episodes []domain.Episode
}

// groupBy buckets episodes by key, keeping first-seen group order and the
// supplied order inside each group.
func groupBy(episodes []domain.Episode, key func(domain.Episode) string) []group {
	var groups []group
	index := map[string]int{}
	for _, ep := range episodes {
		k := key(ep)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{name: k})
		}
		groups[i].episodes = append(groups[i].episodes, ep)
	}
	return groups
}

// Generate writes one feed per period folder, one aggregate feed per
// collection and, when enabled, one feed per speaker with at least one talk.
func (e *Engine) Generate(ctx context.Context, episodes []domain.Episode, people map[string]domain.Speaker) ([]Written, error) {
	var written []Written

	for _, coll := range groupBy(episodes, func(ep domain.Episode) string { return ep.Source }) {
		for _, period := range groupBy(coll.episodes, func(ep domain.Episode) string { return ep.Folder }) {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			w, err := e.writePeriod(coll.name, period, people)
			if err != nil {
				return written, err
			}
			written = append(written, w)
		}

		w, err := e.writeAggregate(coll, people)
		if err != nil {
			return written, err
		}
		written = append(written, w)
	}

	if e.cfg.People {
		ws, err := e.writePeople(ctx, episodes, people)
		written = append(written, ws...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (e *Engine) writePeriod(collection string, period group, people map[string]domain.Speaker) (Written, error) {
	md := period.episodes[0].Metadata
	title := md.Season.Label
	if title == "" {
		title = e.humanize(period.name)
	}
	feedPath := path.Join(collection, period.name+".rss")

	ch := e.artistChannel(md.Artist, title, feedPath)
	ch.Image = Image(md, e.DefaultImage())
	return e.write(KindPeriod, feedPath, ch, e.items(period.episodes, people))
}

func (e *Engine) writeAggregate(coll group, people map[string]domain.Speaker) (Written, error) {
	md := coll.episodes[0].Metadata
	title := md.Album.Label
	if title == "" {
		title = e.humanize(coll.name)
	}
	feedPath := path.Join(coll.name, "all.rss")

	ch := e.artistChannel(md.Artist, title, feedPath)
	ch.Image = Image(domain.Metadata{Artist: md.Artist}, e.DefaultImage())
	return e.write(KindAggregate, feedPath, ch, e.items(coll.episodes, people))
}

func (e *Engine) writePeople(ctx context.Context, episodes []domain.Episode, people map[string]domain.Speaker) ([]Written, error) {
	bySpeaker := map[string][]domain.Episode{}
	for _, ep := range episodes {
		if ep.Speaker.ID != "" {
			bySpeaker[ep.Speaker.ID] = append(bySpeaker[ep.Speaker.ID], ep)
		}
	}
	ids := make([]string, 0, len(bySpeaker))
	for id := range bySpeaker {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var written []Written
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		eps := bySpeaker[id]
		var speaker *domain.Speaker
		if sp, ok := people[id]; ok {
			speaker = &sp
		}
		name := SpeakerName(eps[0].Speaker, speaker)

		feedPath := path.Join(KindPeople, id+".rss")
		ch := e.channel(fmt.Sprintf("Talks by %s", name), feedPath)
		ch.Description = fmt.Sprintf("Talks and messages by %s", name)
		ch.Image = e.DefaultImage()
		ch.Link = e.cfg.PeopleLink
		if speaker != nil && speaker.Photo != "" {
			ch.Image = speaker.Photo
		}
		if speaker != nil && speaker.Website != "" {
			ch.Link = speaker.Website
		}
		ch.Author = name
		ch.Copyright = e.cfg.PeopleCopyright

		w, err := e.write(KindPeople, feedPath, ch, e.items(eps, people))
		if err != nil {
			return written, err
		}
		written = append(written, w)
	}
	return written, nil
}

func (e *Engine) channel(title, feedPath string) Channel {
	return Channel{
		Title:       title,
		Description: title,
		SelfURL:     strings.TrimRight(e.cfg.BaseURL, "/") + "/" + feedPath,
		OwnerEmail:  e.cfg.OwnerEmail,
		Category:    e.cfg.Category,
	}
}

func (e *Engine) artistChannel(artist domain.Artist, title, feedPath string) Channel {
	ch := e.channel(title, feedPath)
	ch.Link = artist.Website
	ch.Author = artist.Name
	ch.Copyright = artist.Copyright
	return ch
}

func (e *Engine) items(episodes []domain.Episode, people map[string]domain.Speaker) []Item {
	def := e.DefaultImage()
	items := make([]Item, 0, len(episodes))
	for _, ep := range episodes {
		var speaker *domain.Speaker
		if sp, ok := people[ep.Speaker.ID]; ok {
			speaker = &sp
		}
		items = append(items, NewItem(ep, speaker, def, e.cfg.Disclaimer))
	}
	return items
}

func (e *Engine) write(kind, feedPath string, ch Channel, items []Item) (Written, error) {
	data, err := Render(ch, items, e.now)
	if err != nil {
		return Written{}, fmt.Errorf("render %s: %w", feedPath, err)
	}

	target := filepath.Join(e.cfg.OutDir, filepath.FromSlash(feedPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Written{}, fmt.Errorf("create feed dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return Written{}, fmt.Errorf("write %s: %w", feedPath, err)
	}

	e.metrics.FeedsWritten.WithLabelValues(kind).Inc()
	e.log.Info("feed written", "path", feedPath, "kind", kind, "items", len(items))
	return Written{Path: feedPath, Kind: kind, Title: ch.Title, Items: len(items)}, nil
}

func (e *Engine) humanize(name string) string {
	return e.title.String(strings.ReplaceAll(name, "-", " "))
}
