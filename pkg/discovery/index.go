// Package discovery writes the index.json catalog of every feed file below
// the output directory.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mmcdole/gofeed"
)

// IndexFile is the name of the catalog written at the output root.
const IndexFile = "index.json"

// Entry summarizes one feed file.
type Entry struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Index is the document written to index.json.
type Index struct {
	AvailableFeeds []Entry `json:"availableFeeds"`
}

// FeedReader reads the artwork of feed files
type FeedReader struct {
	feedParser *gofeed.Parser
}

// NewFeedReader creates a new feed reader
func NewFeedReader() *FeedReader {
	return &FeedReader{
		feedParser: gofeed.NewParser(),
	}
}

// Image returns the channel artwork of the feed file at path: the itunes
// image, else the RSS image.
func (r *FeedReader) Image(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	feed, err := r.feedParser.Parse(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse feed %s: %w", path, err)
	}
	if feed.ITunesExt != nil && feed.ITunesExt.Image != "" {
		return feed.ITunesExt.Image, nil
	}
	if feed.Image != nil {
		return feed.Image.URL, nil
	}
	return "", nil
}

// Scan lists every *.rss file below outDir, sorted by path.
func (r *FeedReader) Scan(outDir string) ([]Entry, error) {
	matches, err := doublestar.Glob(os.DirFS(outDir), "**/*.rss")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", outDir, err)
	}
	sort.Strings(matches)

	entries := make([]Entry, 0, len(matches))
	for _, rel := range matches {
		image, err := r.Image(filepath.Join(outDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		kind, name := classify(rel)
		entries = append(entries, Entry{Path: rel, Type: kind, Name: name, Image: image})
	}
	return entries, nil
}

// classify splits "general-conference/2022-april.rss" into its type
// ("general-conference") and name ("2022-april").
func classify(rel string) (string, string) {
	parts := strings.SplitN(strings.TrimSuffix(rel, ".rss"), "/", 3)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// Build rewrites {outDir}/index.json and returns the number of feeds listed.
func Build(outDir string) (int, error) {
	entries, err := NewFeedReader().Scan(outDir)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(Index{AvailableFeeds: entries})
	if err != nil {
		return 0, fmt.Errorf("encode index: %w", err)
	}
	tmp := filepath.Join(outDir, IndexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(outDir, IndexFile)); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	return len(entries), nil
}
