// Package initializer assembles the service's dependencies at startup:
// logger, sqlite store, Redis cache, feed client and the exchange service.
package initializer

import (
	"log/slog"

	infra_cache "github.com/ratelab/currex/infra/cache"
	"github.com/ratelab/currex/infra/feed"
	rates_repo "github.com/ratelab/currex/infra/repository/rates"
	"github.com/ratelab/currex/pkg/cache"
	"github.com/ratelab/currex/pkg/config"
	"github.com/ratelab/currex/pkg/service/exchange"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// Deps holds everything the server needs to run.
type Deps struct {
	Logger   *slog.Logger
	DB       *gorm.DB
	Exchange *exchange.Service
}

// InitializeDependencies wires all application dependencies from config.
// A broken Redis URL downgrades the cache to in-process memory instead of
// failing startup; the cache is an optimization, not a dependency.
func InitializeDependencies(cfg *config.App) (*Deps, error) {
	logger := setupLogger(cfg.Log)

	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	var rateCache cache.RateCache
	rateCache, err = infra_cache.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Invalid Redis URL, using in-memory cache", "error", err)
		rateCache = infra_cache.NewMemory()
	}

	feedClient := feed.NewClient(cfg.Feed, logger)

	svc := exchange.New(
		feedClient,
		rates_repo.New(db),
		rateCache,
		logger,
		cfg.Cache.TTL,
		cfg.Preload.Currencies,
	)

	return &Deps{
		Logger:   logger,
		DB:       db,
		Exchange: svc,
	}, nil
}

func openDB(cfg *config.App, logger *slog.Logger) (*gorm.DB, error) {
	logMode := gorm_logger.Silent
	if cfg.Env == "development" {
		logMode = gorm_logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.DB.Path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Opened rate store", "path", cfg.DB.Path)
	return db, nil
}
