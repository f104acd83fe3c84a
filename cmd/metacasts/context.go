package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"metacasts/pkg/config"
	"metacasts/pkg/db"
	"metacasts/pkg/logging"
	"metacasts/pkg/metrics"
	"metacasts/pkg/store"
)

type globalFlags struct {
	config    string
	storeRoot string
	outDir    string
	logLevel  string
}

type commandContext struct {
	flags *globalFlags
	// logOutput is where logs go; stderr unless a test swaps it.
	logOutput io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	runID   string
	log     *slog.Logger
	metrics *metrics.Metrics
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{
		flags:     flags,
		logOutput: os.Stderr,
		runID:     uuid.NewString(),
		metrics:   metrics.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.log = logging.NewWithWriter(c.logOutput, cfg.Logging.Level, cfg.Logging.Format).With("run_id", c.runID)
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if path := strings.TrimSpace(c.flags.config); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if c.flags.storeRoot != "" {
		cfg.Store.Root = c.flags.storeRoot
	}
	if c.flags.outDir != "" {
		cfg.Feeds.OutDir = c.flags.outDir
	}
	if c.flags.logLevel != "" {
		cfg.Logging.Level = c.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// logger is only valid after ensureConfig succeeded.
func (c *commandContext) logger() *slog.Logger {
	if c.log == nil {
		return logging.Discard()
	}
	return c.log
}

// openStore opens the configured backend, or backend when it is not empty.
func (c *commandContext) openStore(ctx context.Context, backend string) (store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, cfg.Store, backend)
}

// lockStore takes the single-writer lock of a YAML store. Other backends
// return a no-op unlock.
func (c *commandContext) lockStore() (func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend != "yaml" {
		return func() {}, nil
	}
	if err := os.MkdirAll(cfg.Store.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	lock, err := store.LockDir(cfg.Store.Root)
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Unlock() }, nil
}

func (c *commandContext) flushMetrics() error {
	if c.config == nil {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.config.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
