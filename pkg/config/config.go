// Package config loads the YAML configuration shared by every command.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"metacasts/pkg/domain"
)

// Configuration validation errors.
var (
	ErrInvalidBackend      = errors.New("store.backend must be one of: yaml, mongo, postgres, supabase")
	ErrMissingStoreRoot    = errors.New("store.root is required for the yaml backend")
	ErrMissingMongoURI     = errors.New("store.mongo.uri and store.mongo.database are required")
	ErrMissingPostgresDSN  = errors.New("store.postgres.dsn is required")
	ErrMissingSupabase     = errors.New("store.supabase needs connection_string, or url with password or key")
	ErrMissingBaseURL      = errors.New("source.base_url is required")
	ErrInvalidDelay        = errors.New("source.request_delay_ms must be non-negative")
	ErrInvalidTimeout      = errors.New("source.timeout_sec must be at least 1")
	ErrMissingCollection   = errors.New("collection.name and collection.abbreviation are required")
	ErrInvalidMonths       = errors.New("collection.months must list months between 1 and 12")
	ErrInvalidPeriodKey    = errors.New("collection.periods keys must look like YYYY-MM")
	ErrInvalidPolicy       = errors.New("ingest.fetch_failure_policy must be 'compact' or 'reserve'")
	ErrMissingOutDir       = errors.New("feeds.out_dir is required")
	ErrMissingFeedsBaseURL = errors.New("feeds.base_url is required")
	ErrInvalidWorkers      = errors.New("durations.workers must be at least 1")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be 'text' or 'json'")
)

// Config represents the complete configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Source     SourceConfig     `yaml:"source"`
	Collection CollectionConfig `yaml:"collection"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Durations  DurationsConfig  `yaml:"durations"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Root     string         `yaml:"root"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	Supabase SupabaseConfig `yaml:"supabase"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// SupabaseConfig configures the supabase backend.
type SupabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
	URL              string `yaml:"url"`
	Key              string `yaml:"key"`
	Password         string `yaml:"password"`
}

// SourceConfig describes the upstream content API.
type SourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestDelayMs int    `yaml:"request_delay_ms"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	UserAgent      string `yaml:"user_agent"`
}

// CollectionConfig describes the content series being ingested.
type CollectionConfig struct {
	Name         string                  `yaml:"name"`
	Abbreviation string                  `yaml:"abbreviation"`
	URIPrefix    string                  `yaml:"uri_prefix"`
	Title        string                  `yaml:"title"`
	FirstYear    int                     `yaml:"first_year"`
	Months       []int                   `yaml:"months"`
	Sessions     map[int]string          `yaml:"sessions"`
	Periods      map[string]PeriodConfig `yaml:"periods"`
}

// PeriodConfig overrides derived season values for one period.
type PeriodConfig struct {
	Season      int            `yaml:"season"`
	Label       string         `yaml:"label"`
	StartDate   string         `yaml:"start_date"`
	EndDate     string         `yaml:"end_date"`
	Sessions    map[int]string `yaml:"sessions"`
	Icon        string         `yaml:"icon"`
	Description string         `yaml:"description"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	FetchFailurePolicy string   `yaml:"fetch_failure_policy"`
	Honorifics         []string `yaml:"honorifics"`
	ProbeDurations     bool     `yaml:"probe_durations"`
}

// FeedsConfig controls feed synthesis.
type FeedsConfig struct {
	OutDir          string `yaml:"out_dir"`
	BaseURL         string `yaml:"base_url"`
	DefaultImage    string `yaml:"default_image"`
	OwnerEmail      string `yaml:"owner_email"`
	Category        string `yaml:"category"`
	Disclaimer      string `yaml:"disclaimer"`
	People          bool   `yaml:"people"`
	PeopleLink      string `yaml:"people_link"`
	PeopleCopyright string `yaml:"people_copyright"`
}

// DurationsConfig controls the duration filler.
type DurationsConfig struct {
	Workers     int    `yaml:"workers"`
	FFProbePath string `yaml:"ffprobe_path"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig defines where counters are written.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Disclaimer is appended to every feed item description.
const Disclaimer = "This meta-podcast is not published, maintained, or endorsed by The Church of Jesus Christ of Latter-Day Saints, but instead by a faithful member of the Church who is seeking ways to make consuming Gospel content easier for everyone. If there are any mistakes, please report them on GitHub and we'll try to get them fixed."

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "yaml",
			Root:    "data",
		},
		Source: SourceConfig{
			BaseURL:        "https://www.churchofjesuschrist.org/study/api/v3/language-pages/type/content?lang=eng&uri=",
			RequestDelayMs: 1000,
			TimeoutSec:     30,
		},
		Collection: CollectionConfig{
			Name:         "general-conference",
			Abbreviation: "gc",
			URIPrefix:    "/general-conference",
			Title:        "General Conference",
			FirstYear:    1971,
			Months:       []int{4, 10},
			Sessions: map[int]string{
				1: "Saturday Morning Session",
				2: "Saturday Afternoon Session",
				3: "Saturday Evening Session",
				4: "Sunday Morning Session",
				5: "Sunday Afternoon Session",
			},
		},
		Ingest: IngestConfig{
			FetchFailurePolicy: "compact",
			Honorifics:         []string{"Sister", "Elder", "President", "Bishop", "Brother"},
		},
		Feeds: FeedsConfig{
			OutDir:          "out",
			BaseURL:         "https://joeskeen.github.io/gospel-metacasts",
			DefaultImage:    "assets/logo.png",
			OwnerEmail:      "no-reply@example.com",
			Category:        "Religion & Spirituality",
			Disclaimer:      Disclaimer,
			People:          true,
			PeopleLink:      "https://www.churchofjesuschrist.org",
			PeopleCopyright: "© 2024 Intellectual Reserve, Inc. All rights reserved.",
		},
		Durations: DurationsConfig{
			Workers:     4,
			FFProbePath: "ffprobe",
			TimeoutSec:  60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "yaml":
		if c.Store.Root == "" {
			return ErrMissingStoreRoot
		}
	case "mongo":
		if c.Store.Mongo.URI == "" || c.Store.Mongo.Database == "" {
			return ErrMissingMongoURI
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return ErrMissingPostgresDSN
		}
	case "supabase":
		s := c.Store.Supabase
		if s.ConnectionString == "" && (s.URL == "" || (s.Password == "" && s.Key == "")) {
			return ErrMissingSupabase
		}
	default:
		return ErrInvalidBackend
	}

	if c.Source.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.Source.RequestDelayMs < 0 {
		return ErrInvalidDelay
	}
	if c.Source.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Collection.Name == "" || c.Collection.Abbreviation == "" {
		return ErrMissingCollection
	}
	if len(c.Collection.Months) == 0 {
		return ErrInvalidMonths
	}
	for _, m := range c.Collection.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: %d", ErrInvalidMonths, m)
		}
	}
	periods, err := canonicalPeriods(c.Collection.Periods)
	if err != nil {
		return err
	}
	c.Collection.Periods = periods

	if p := c.Ingest.FetchFailurePolicy; p != "compact" && p != "reserve" {
		return ErrInvalidPolicy
	}

	if c.Feeds.OutDir == "" {
		return ErrMissingOutDir
	}
	if c.Feeds.BaseURL == "" {
		return ErrMissingFeedsBaseURL
	}

	if c.Durations.Workers < 1 {
		return ErrInvalidWorkers
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// canonicalPeriods re-keys period overrides by their canonical "YYYY-MM"
// form, so "2022-4" and "2022-04" name the same period.
func canonicalPeriods(in map[string]PeriodConfig) (map[string]PeriodConfig, error) {
	if len(in) == 0 {
		return in, nil
	}
	out := make(map[string]PeriodConfig, len(in))
	for key, o := range in {
		p, err := domain.ParsePeriod(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		if _, dup := out[p.String()]; dup {
			return nil, fmt.Errorf("%w: %q duplicates %s", ErrInvalidPeriodKey, key, p.String())
		}
		out[p.String()] = o
	}
	return out, nil
}

// RequestDelay returns the politeness delay between upstream fetches.
func (s *SourceConfig) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (s *SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Timeout returns the per-probe timeout.
func (d *DurationsConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// SeasonFor derives the Season record of a period. Values set under
// collection.periods win over derived ones.
func (c *CollectionConfig) SeasonFor(p domain.Period) domain.Season {
	season := domain.Season{
		Label:     fmt.Sprintf("%s %d %s", p.MonthName(), p.Year, c.Title),
		StartDate: p.FirstDay(),
		Sessions:  c.Sessions,
	}
	if idx := slices.Index(c.Months, p.Month); idx >= 0 && c.FirstYear > 0 && p.Year >= c.FirstYear {
		season.Season = (p.Year-c.FirstYear)*len(c.Months) + idx + 1
	}

	o, ok := c.Periods[p.String()]
	if !ok {
		return season
	}
	if o.Season > 0 {
		season.Season = o.Season
	}
	if o.Label != "" {
		season.Label = o.Label
	}
	if o.StartDate != "" {
		season.StartDate = o.StartDate
	}
	if o.EndDate != "" {
		season.EndDate = o.EndDate
	}
	if len(o.Sessions) > 0 {
		season.Sessions = o.Sessions
	}
	season.Icon = o.Icon
	season.Description = o.Description
	return season
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Backend: %s, Collection: %s, Out: %s}",
		c.Store.Backend,
		c.Collection.Name,
		c.Feeds.OutDir,
	)
}
