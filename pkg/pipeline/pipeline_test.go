package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"metacasts/pkg/content"
	"metacasts/pkg/domain"
	"metacasts/pkg/metrics"
	"metacasts/pkg/probe"
	"metacasts/pkg/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fixtureServer serves content API responses keyed by uri.
type fixtureServer struct {
	mu     sync.Mutex
	pages  map[string]string // uri -> body html
	audio  map[string]string // uri -> media url
	hits   []string
	server *httptest.Server
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()
	f := &fixtureServer{pages: map[string]string{}, audio: map[string]string{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		f.mu.Lock()
		f.hits = append(f.hits, uri)
		body, ok := f.pages[uri]
		media := f.audio[uri]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		resp := map[string]any{"content": map[string]any{"body": body}, "meta": map[string]any{}}
		if media != "" {
			resp["meta"] = map[string]any{"audio": []any{map[string]any{"mediaUrl": media}}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixtureServer) client() *content.Client {
	return content.NewClient(f.server.URL+"/api?lang=eng&uri=", nil)
}

func landing(sessions ...[]string) string {
	var b strings.Builder
	b.WriteString("<nav><ul>")
	for _, links := range sessions {
		b.WriteString(`<li><a href="/study/general-conference/2022/04/session?lang=eng">Session</a><ul>`)
		for _, l := range links {
			b.WriteString(`<li><a href="/study` + l + `?lang=eng">talk</a></li>`)
		}
		b.WriteString("</ul></li>")
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

func talkPage(title, author, calling, summary string) string {
	return `<header><h1>` + title + `</h1><div><p>` + author + `</p><p>` + calling + `</p></div><p>` + summary + `</p></header>`
}

const markerPage = `<header><h1>Saturday Morning Session</h1></header>`

var april2022 = domain.Period{Year: 2022, Month: 4}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestPipeline(t *testing.T, f *fixtureServer, opts Options, extra ...Option) (*Pipeline, store.Store, *metrics.Metrics) {
	t.Helper()
	s, err := store.OpenYAML(t.TempDir())
	if err != nil {
		t.Fatalf("OpenYAML failed: %v", err)
	}
	if opts.Collection == "" {
		opts.Collection = "general-conference"
		opts.Abbreviation = "gc"
		opts.URIPrefix = "/general-conference"
		opts.Honorifics = []string{"Sister", "Elder", "President", "Bishop", "Brother"}
	}
	m := metrics.New()
	options := append([]Option{WithSleeper(noSleep), WithMetrics(m)}, extra...)
	return NewPipeline(f.client(), s, opts, options...), s, m
}

func talkKey(id string) string {
	return path.Join("general-conference", "2022-april", id)
}

func TestRun_MarkerThenHolland(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing([]string{
		"/general-conference/2022/04/10intro",
		"/general-conference/2022/04/11holland",
	})
	f.pages["/general-conference/2022/04/10intro"] = markerPage
	f.pages["/general-conference/2022/04/11holland"] = talkPage("Fear Not", "By Jeffrey R. Holland", "Of the Quorum of the Twelve Apostles", "Be not afraid.")
	f.audio["/general-conference/2022/04/11holland"] = "https://media.example/holland.mp3"

	p, s, m := newTestPipeline(t, f, Options{})
	ctx := context.Background()

	report, err := p.Run(ctx, april2022)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Talks != 1 || report.Markers != 1 || report.Links != 2 {
		t.Errorf("Unexpected report: %+v", report)
	}

	keys, err := s.Keys(ctx, store.Episodes)
	if err != nil {
		t.Fatal(err)
	}
	wantID := "gc-2022-04-01-01-jeffrey-r-holland-fear-not"
	if len(keys) != 1 || keys[0] != talkKey(wantID) {
		t.Fatalf("Expected single talk %s, got %v", wantID, keys)
	}

	doc, err := s.Get(ctx, store.Episodes, keys[0])
	if err != nil {
		t.Fatal(err)
	}
	var talk domain.Talk
	if err := store.Decode(doc, &talk); err != nil {
		t.Fatal(err)
	}
	if talk.Session != 1 || talk.Sequence != 1 {
		t.Errorf("Expected slot 1/1, got %d/%d", talk.Session, talk.Sequence)
	}
	if talk.Speaker.ID != "jeffrey-r-holland" {
		t.Errorf("Expected speaker id jeffrey-r-holland, got %q", talk.Speaker.ID)
	}
	if talk.Speaker.Title.Short != "Jeffrey" {
		t.Errorf("Expected first token as short title, got %q", talk.Speaker.Title.Short)
	}
	if talk.Speaker.Title.Full != "Of the Quorum of the Twelve Apostles" {
		t.Errorf("Unexpected full title %q", talk.Speaker.Title.Full)
	}
	if talk.Links.MP3 != "https://media.example/holland.mp3" {
		t.Errorf("Unexpected mp3 link %q", talk.Links.MP3)
	}
	if talk.Date != "2022-04-01" || talk.Summary != "Be not afraid." {
		t.Errorf("Unexpected date/summary: %q / %q", talk.Date, talk.Summary)
	}
	if talk.Duration != nil {
		t.Errorf("Expected no duration, got %d", *talk.Duration)
	}

	speaker, err := s.Get(ctx, store.People, "jeffrey-r-holland")
	if err != nil {
		t.Fatalf("Expected speaker document: %v", err)
	}
	if speaker["name"] != "Jeffrey R. Holland" {
		t.Errorf("Unexpected speaker name %v", speaker["name"])
	}

	if _, err := s.Get(ctx, store.Episodes, talkKey(domain.SeasonDoc)); err != nil {
		t.Errorf("Expected season document: %v", err)
	}
	if got := testutil.ToFloat64(m.SessionMarkers); got != 1 {
		t.Errorf("Expected 1 marker counted, got %v", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing(
		[]string{"/general-conference/2022/04/10intro", "/general-conference/2022/04/11nelson", "/general-conference/2022/04/12gong"},
		[]string{"/general-conference/2022/04/20intro", "/general-conference/2022/04/21johnson"},
	)
	f.pages["/general-conference/2022/04/10intro"] = markerPage
	f.pages["/general-conference/2022/04/20intro"] = markerPage
	f.pages["/general-conference/2022/04/11nelson"] = talkPage("The Power of Spiritual Momentum", "By President Russell M. Nelson", "President of the Church", "Momentum.")
	f.pages["/general-conference/2022/04/12gong"] = talkPage("Room in the Inn", "By Elder Gerrit W. Gong", "Of the Quorum of the Twelve Apostles", "Inn.")
	f.pages["/general-conference/2022/04/21johnson"] = talkPage("Jesus Christ Is Relief", "By Sister Camille N. Johnson", "Relief Society General President", "Relief.")

	p, s, _ := newTestPipeline(t, f, Options{})
	ctx := context.Background()

	if _, err := p.Run(ctx, april2022); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	firstTalks, _ := s.Keys(ctx, store.Episodes)
	firstPeople, _ := s.Keys(ctx, store.People)

	wantTalks := []string{
		talkKey("gc-2022-04-01-01-russell-m-nelson-the-power-of-spiritual-momentum"),
		talkKey("gc-2022-04-01-02-gerrit-w-gong-room-in-the-inn"),
		talkKey("gc-2022-04-02-01-camille-n-johnson-jesus-christ-is-relief"),
	}
	if strings.Join(firstTalks, ",") != strings.Join(wantTalks, ",") {
		t.Fatalf("talks = %v, want %v", firstTalks, wantTalks)
	}

	// A duration filled in between runs must survive the second run, as must
	// speaker enrichment.
	doc, _ := s.Get(ctx, store.Episodes, wantTalks[1])
	doc["duration"] = 754
	if err := s.Put(ctx, store.Episodes, wantTalks[1], doc); err != nil {
		t.Fatal(err)
	}
	person, _ := s.Get(ctx, store.People, "gerrit-w-gong")
	person["photo"] = "https://example.org/gong.jpg"
	if err := s.Put(ctx, store.People, "gerrit-w-gong", person); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Run(ctx, april2022); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	secondTalks, _ := s.Keys(ctx, store.Episodes)
	secondPeople, _ := s.Keys(ctx, store.People)
	if len(secondTalks) != len(firstTalks) || len(secondPeople) != len(firstPeople) {
		t.Fatalf("Second run changed record counts: %d/%d talks, %d/%d people",
			len(firstTalks), len(secondTalks), len(firstPeople), len(secondPeople))
	}

	doc, _ = s.Get(ctx, store.Episodes, wantTalks[1])
	if doc["duration"] != 754 {
		t.Errorf("Expected duration to be kept, got %v", doc["duration"])
	}
	person, _ = s.Get(ctx, store.People, "gerrit-w-gong")
	if person["photo"] != "https://example.org/gong.jpg" {
		t.Errorf("Expected speaker enrichment to be kept, got %v", person)
	}
}

func TestRun_FetchFailurePolicy(t *testing.T) {
	tests := []struct {
		policy Policy
		wantID string
	}{
		{Compact, "gc-2022-04-01-02-dale-g-renlund-a-framework"},
		{Reserve, "gc-2022-04-01-03-dale-g-renlund-a-framework"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			f := newFixtureServer(t)
			f.pages["/general-conference/2022/04"] = landing([]string{
				"/general-conference/2022/04/10intro",
				"/general-conference/2022/04/11nelson",
				"/general-conference/2022/04/12missing",
				"/general-conference/2022/04/13renlund",
			})
			f.pages["/general-conference/2022/04/10intro"] = markerPage
			f.pages["/general-conference/2022/04/11nelson"] = talkPage("Momentum", "By President Russell M. Nelson", "President", "")
			f.pages["/general-conference/2022/04/13renlund"] = talkPage("A Framework", "By Elder Dale G. Renlund", "Apostle", "")

			p, s, m := newTestPipeline(t, f, Options{
				Collection:   "general-conference",
				Abbreviation: "gc",
				URIPrefix:    "/general-conference",
				Honorifics:   []string{"Elder", "President"},
				Policy:       tt.policy,
			})
			report, err := p.Run(context.Background(), april2022)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if report.Failures != 1 || report.Talks != 2 {
				t.Errorf("Unexpected report: %+v", report)
			}
			if _, err := s.Get(context.Background(), store.Episodes, talkKey(tt.wantID)); err != nil {
				t.Errorf("Expected talk %s: %v", tt.wantID, err)
			}
			if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("talk")); got != 1 {
				t.Errorf("Expected one talk fetch failure, got %v", got)
			}
		})
	}
}

func TestRun_LandingFailureIsFatal(t *testing.T) {
	f := newFixtureServer(t)
	p, _, _ := newTestPipeline(t, f, Options{})

	_, err := p.Run(context.Background(), april2022)
	if !errors.Is(err, content.ErrFetchFailure) {
		t.Fatalf("Expected fetch failure, got %v", err)
	}
}

func TestRun_MissingLandingBody(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = ""
	p, _, _ := newTestPipeline(t, f, Options{})

	_, err := p.Run(context.Background(), april2022)
	if !errors.Is(err, content.ErrMissingContent) {
		t.Fatalf("Expected missing content, got %v", err)
	}
}

func TestRun_MissingTitleStillEmits(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing([]string{"/general-conference/2022/04/11x"})
	f.pages["/general-conference/2022/04/11x"] = `<header><div><p>By Elder Neil L. Andersen</p></div></header>`

	p, s, _ := newTestPipeline(t, f, Options{})
	report, err := p.Run(context.Background(), april2022)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Talks != 1 {
		t.Fatalf("Expected talk to be emitted, got %+v", report)
	}
	keys, _ := s.Keys(context.Background(), store.Episodes)
	if len(keys) != 1 || !strings.Contains(keys[0], "gc-2022-04-00-01-neil-l-andersen-") {
		t.Errorf("Unexpected keys %v", keys)
	}
}

func TestRun_ProbesNewTalks(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing([]string{"/general-conference/2022/04/11a", "/general-conference/2022/04/12b"})
	f.pages["/general-conference/2022/04/11a"] = talkPage("A", "By Elder A B", "x", "")
	f.pages["/general-conference/2022/04/12b"] = talkPage("B", "By Elder C D", "x", "")
	f.audio["/general-conference/2022/04/11a"] = "https://media.example/a.mp3"
	f.audio["/general-conference/2022/04/12b"] = "https://media.example/b.mp3"

	probes := 0
	prober := probe.Func(func(ctx context.Context, url string) (int, bool) {
		probes++
		if strings.HasSuffix(url, "a.mp3") {
			return 600, true
		}
		return 0, false
	})

	p, s, _ := newTestPipeline(t, f, Options{}, WithProber(prober))
	p.opts.ProbeDurations = true

	if _, err := p.Run(context.Background(), april2022); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	a, _ := s.Get(context.Background(), store.Episodes, talkKey("gc-2022-04-00-01-a-b-a"))
	if a["duration"] != 600 {
		t.Errorf("Expected probed duration, got %v", a["duration"])
	}
	b, _ := s.Get(context.Background(), store.Episodes, talkKey("gc-2022-04-00-02-c-d-b"))
	if _, ok := b["duration"]; ok {
		t.Errorf("Expected absent duration on probe failure, got %v", b["duration"])
	}

	if _, err := p.Run(context.Background(), april2022); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if probes != 3 {
		t.Errorf("Expected only the talk without duration to be probed again, got %d probes", probes)
	}
}

func TestRun_WaitsBeforeEveryTalkFetch(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing([]string{"/general-conference/2022/04/10intro", "/general-conference/2022/04/11a"})
	f.pages["/general-conference/2022/04/10intro"] = markerPage
	f.pages["/general-conference/2022/04/11a"] = talkPage("A", "By Elder A B", "x", "")

	var waits int
	sleeper := func(ctx context.Context, d time.Duration) error {
		if d != 250*time.Millisecond {
			t.Errorf("Unexpected delay %v", d)
		}
		waits++
		return nil
	}
	p, _, _ := newTestPipeline(t, f, Options{}, WithSleeper(sleeper))
	p.opts.Delay = 250 * time.Millisecond

	if _, err := p.Run(context.Background(), april2022); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if waits != 2 {
		t.Errorf("Expected 2 waits, got %d", waits)
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixtureServer(t)
	f.pages["/general-conference/2022/04"] = landing([]string{"/general-conference/2022/04/11a"})

	ctx, cancel := context.WithCancel(context.Background())
	sleeper := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	p, _, _ := newTestPipeline(t, f, Options{}, WithSleeper(sleeper))

	if _, err := p.Run(ctx, april2022); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
