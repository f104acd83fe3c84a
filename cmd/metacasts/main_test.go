package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const landingBody = `<nav><ul><li><a href="/study/general-conference/2022/04/saturday-morning?lang=eng">Saturday Morning</a><ul>` +
	`<li><a href="/study/general-conference/2022/04/11session?lang=eng">Session</a></li>` +
	`<li><a href="/study/general-conference/2022/04/12holland?lang=eng">Fear Not</a></li>` +
	`<li><a href="/study/general-conference/2022/04/13renlund?lang=eng">A Framework</a></li>` +
	`</ul></li></ul></nav>`

func contentServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/general-conference/2022/04":           landingBody,
		"/general-conference/2022/04/11session": `<header><h1>Saturday Morning Session</h1></header>`,
		"/general-conference/2022/04/12holland": `<header><h1>Fear Not</h1><div><p>By Elder Jeffrey R. Holland</p><p>Of the Quorum of the Twelve Apostles</p></div><p>Be not afraid.</p></header>`,
		"/general-conference/2022/04/13renlund": `<header><h1>A Framework</h1><div><p>By Elder Dale G. Renlund</p><p>Of the Quorum of the Twelve Apostles</p></div><p>Order.</p></header>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("uri")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"body": body},
			"meta":    map[string]any{"audio": []any{map[string]any{"mediaUrl": "https://media.example/talk.mp3"}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T, baseURL string) testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := strings.Join([]string{
		"store:",
		"  backend: yaml",
		"  root: " + filepath.Join(dir, "data"),
		"source:",
		"  base_url: " + baseURL + "/api?lang=eng&uri=",
		"  request_delay_ms: 0",
		"feeds:",
		"  out_dir: " + filepath.Join(dir, "out"),
		"  base_url: https://example.com/feeds",
		"logging:",
		"  level: error",
		"metrics:",
		"  textfile: " + filepath.Join(dir, "metacasts.prom"),
		"",
	}, "\n")
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return testEnv{dir: dir, configPath: path}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(testContext(t))
	return out.String(), err
}

func TestIngestFeedsIndex(t *testing.T) {
	env := newTestEnv(t, contentServer(t).URL)

	out, err := env.run(t, "ingest", "--period", "2022-04")
	if err != nil {
		t.Fatalf("ingest failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2022-04") {
		t.Errorf("Expected report table, got:\n%s", out)
	}

	talk := filepath.Join(env.dir, "data", "episodes", "general-conference", "2022-april", "gc-2022-04-01-01-jeffrey-r-holland-fear-not.yml")
	if _, err := os.Stat(talk); err != nil {
		t.Errorf("Expected talk record: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "data", "people", "dale-g-renlund.yml")); err != nil {
		t.Errorf("Expected speaker record: %v", err)
	}
	prom, err := os.ReadFile(filepath.Join(env.dir, "metacasts.prom"))
	if err != nil {
		t.Fatalf("Expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "metacasts_talks_ingested_total 2") {
		t.Errorf("Expected 2 talks counted, got:\n%s", prom)
	}

	out, err = env.run(t, "feeds")
	if err != nil {
		t.Fatalf("feeds failed: %v\n%s", err, out)
	}
	for _, want := range []string{"general-conference/2022-april.rss", "general-conference/all.rss", "people/jeffrey-r-holland.rss", "4 available feeds"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected feeds output to mention %q, got:\n%s", want, out)
		}
	}

	rss, err := os.ReadFile(filepath.Join(env.dir, "out", "general-conference", "2022-april.rss"))
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if !strings.Contains(string(rss), "<title>April 2022 General Conference</title>") {
		t.Errorf("Expected season label as feed title:\n%s", rss)
	}

	out, err = env.run(t, "index")
	if err != nil {
		t.Fatalf("index failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "4 available feeds") {
		t.Errorf("Unexpected index output %q", out)
	}
}

func TestIngest_FailedPeriodExitsNonZero(t *testing.T) {
	env := newTestEnv(t, contentServer(t).URL)

	out, err := env.run(t, "ingest", "--period", "2022-04", "--period", "2021-10")
	if err == nil {
		t.Fatalf("Expected error for the missing period, got output:\n%s", out)
	}
	if !strings.Contains(err.Error(), "1 of 2 periods failed") {
		t.Errorf("Unexpected error %v", err)
	}
	if !strings.Contains(out, "failed") {
		t.Errorf("Expected failed row in report:\n%s", out)
	}
}

func TestIngest_RequiresPeriod(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")
	if _, err := env.run(t, "ingest"); err == nil {
		t.Fatal("Expected error without --period")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")
	if _, err := env.run(t, "--log-level", "loud", "index"); err == nil {
		t.Fatal("Expected validation error for unknown log level")
	}
}

func TestReplicateYAMLToYAMLRejected(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")
	if _, err := env.run(t, "replicate", "--to", "yaml"); err == nil {
		t.Fatal("Expected error replicating a store onto itself")
	}
}
