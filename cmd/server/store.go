package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"neuropulse/internal/config"
	"neuropulse/internal/database"
	"neuropulse/internal/logging"
	"neuropulse/internal/repository"
	"neuropulse/internal/services"
)

// sessionStore is the configured store plus the hooks to migrate and close it.
type sessionStore struct {
	services.SessionStore
	migrate func() error
	close   func()
}

func (s *sessionStore) Close() { s.close() }

func openStore(cfg *config.Config, logger *zap.Logger) (*sessionStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &sessionStore{
			SessionStore: repository.NewSessionRepo(pool),
			migrate:      func() error { return database.RunMigrations(pool, database.PostgresMigrations(), logger) },
			close:        pool.Close,
		}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite data dir: %w", err)
		}
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &sessionStore{
			SessionStore: repository.NewSQLiteSessionRepo(db),
			migrate:      func() error { return database.RunSQLiteMigrations(db, database.SQLiteMigrations(), logger) },
			close:        func() { db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openMigratedStore opens the store and brings its schema up to date.
func openMigratedStore(cfg *config.Config, logger *zap.Logger) (*sessionStore, error) {
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := st.migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// setup loads config and builds the logger every command uses. serve needs
// the full configuration; the store commands only need a usable store.
func setup(server bool) (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	validate := cfg.ValidateStore
	if server {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
