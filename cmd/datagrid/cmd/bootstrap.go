package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/core/api"
	"github.com/solatis/datagrid/internal/core/config"
	"github.com/solatis/datagrid/internal/core/db"
	"github.com/solatis/datagrid/internal/grid"
	"github.com/solatis/datagrid/internal/log"
	"github.com/spf13/cobra"
)

// app holds what every database-backed subcommand needs.
type app struct {
	cfg    *config.Config
	logger log.Logger
	db     *sqlx.DB
}

func (r *app) Close() {
	if r.db != nil {
		r.db.Close()
	}
	r.logger.Sync()
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("--db-url required (or DG_DATABASE_URL)")
	}
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: database}, nil
}

// gridSettings maps the grid section of the configuration.
func gridSettings(cfg *config.Config, logger log.Logger) (grid.Settings, error) {
	isolation, err := grid.ParseIsolationLevel(cfg.Grid.IsolationLevel)
	if err != nil {
		return grid.Settings{}, err
	}
	s := grid.DefaultSettings()
	s.CacheKeyPrefix = cfg.Grid.CacheKeyPrefix
	s.CacheTimeout = cfg.Grid.CacheTimeout
	s.DefaultPageSize = cfg.Grid.DefaultPageSize
	s.Isolation = isolation
	s.CleanupInterval = cfg.Cache.CleanupInterval
	s.Logger = logger
	return s, nil
}

// cacheStore returns the configured store. An unreachable Redis falls back
// to the in-memory store; a nil store keeps the grid default.
func cacheStore(ctx context.Context, cfg *config.Config, logger log.Logger) cache.Store {
	if cfg.Cache.Backend != "redis" {
		return nil
	}
	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Address:  cfg.Cache.Redis.Address,
		Password: cfg.Cache.Redis.Password,
		Database: cfg.Cache.Redis.Database,
		PoolSize: cfg.Cache.Redis.PoolSize,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, using memory cache", "address", cfg.Cache.Redis.Address, "err", err)
		return nil
	}
	return store
}

// newGridService wires the grid over the database and returns the order service.
func (r *app) newGridService(ctx context.Context) (*api.GridService, *grid.Datagrid, error) {
	settings, err := gridSettings(r.cfg, r.logger)
	if err != nil {
		return nil, nil, err
	}
	store := cacheStore(ctx, r.cfg, r.logger)

	g, err := grid.New(settings, func(c *grid.Container) {
		grid.Use[grid.Boundary](c, db.NewTxBoundary(r.db))
		if store != nil {
			grid.Use[cache.Store](c, store)
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build grid: %w", err)
	}

	queries, err := db.LoadQueries(r.db)
	if err != nil {
		g.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	orders, err := api.NewStore(queries)
	if err != nil {
		g.Close()
		return nil, nil, err
	}
	svc, err := api.NewGridService(g, orders, r.logger)
	if err != nil {
		g.Close()
		return nil, nil, err
	}
	return svc, g, nil
}
