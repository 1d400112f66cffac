package app

import (
	"context"

	"github.com/joacominatel/dashtools/internal/config"
	"github.com/joacominatel/dashtools/internal/database"
	"github.com/joacominatel/dashtools/internal/database/postgres"
	"github.com/joacominatel/dashtools/internal/database/sqlite"
)

// OpenAdapter builds and connects the adapter selected by cfg. It is meant
// to be called once at startup; the returned adapter is never swapped.
func OpenAdapter(ctx context.Context, cfg *config.Config) (database.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ErrConfig{Cause: err}
	}
	backend, err := cfg.Backend()
	if err != nil {
		return nil, &ErrConfig{Cause: err}
	}
	if err := cfg.ResolvePassword(); err != nil {
		return nil, &ErrConfig{Cause: err}
	}

	switch backend {
	case database.BackendPostgres:
		driver := postgres.New(cfg.Postgres.Schema)
		if err := driver.Connect(ctx, cfg.Postgres.DSN()); err != nil {
			return nil, &ErrConnection{Backend: backend.String(), Cause: err}
		}
		return driver, nil
	default:
		driver := sqlite.New()
		if err := driver.Connect(ctx, cfg.Database.Path); err != nil {
			return nil, &ErrConnection{Backend: backend.String(), Cause: err}
		}
		return driver, nil
	}
}
