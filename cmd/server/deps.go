package main

import (
	"context"
	"fmt"

	"user-auth/internal/config"
	"user-auth/internal/repository"
	"user-auth/internal/repository/memory"
	"user-auth/internal/repository/postgres"
	"user-auth/internal/repository/sqlite"
)

// openUserRepository connects the configured store and bootstraps its schema.
// The returned func releases the underlying connection.
func openUserRepository(ctx context.Context, cfg config.Config) (repository.UserRepository, func(), error) {
	var (
		repo    repository.UserRepository
		closeFn = func() {}
	)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		repo = sqlite.NewUserRepository(db)
		closeFn = func() { _ = db.Close() }
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		repo = postgres.NewUserRepository(pool)
		closeFn = pool.Close
	case config.DriverMemory:
		repo = memory.NewUserRepository()
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if err := repo.Init(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("init user repository: %w", err)
	}
	return repo, closeFn, nil
}
