package db

import (
	"context"
	"fmt"

	"metacasts/pkg/config"
	"metacasts/pkg/store"
)

// Open connects the store backend named by backend using the matching
// section of cfg. An empty backend means cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, backend string) (store.Store, error) {
	if backend == "" {
		backend = cfg.Backend
	}

	pool := Pool{
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	}

	var (
		s   store.Store
		err error
	)
	switch backend {
	case "yaml":
		s, err = store.OpenYAML(cfg.Root)
	case "mongo":
		if cfg.Mongo.URI == "" || cfg.Mongo.Database == "" {
			return nil, config.ErrMissingMongoURI
		}
		s, err = NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return nil, config.ErrMissingPostgresDSN
		}
		s, err = OpenPostgresStore(ctx, PostgresConfig{
			DSN:  cfg.Postgres.DSN,
			Pool: pool,
		})
	case "supabase":
		s, err = OpenSupabaseStore(ctx, SupabaseConfig{
			ConnectionString: cfg.Supabase.ConnectionString,
			SupabaseURL:      cfg.Supabase.URL,
			SupabaseKey:      cfg.Supabase.Key,
			Password:         cfg.Supabase.Password,
			Pool:             pool,
		})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return s, nil
}
