// Package config loads the application configuration from the environment,
// with an optional .env file on top.
package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads an optional .env file, then materializes the App config from
// environment variables. The config is built once at process start and
// passed by reference to everything that needs it.
func Load() (*App, error) {
	logger := slog.Default()
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using system environment variables")
	}

	var cfg App
	if err := envconfig.Process("CURREX", &cfg); err != nil {
		return nil, err
	}

	logger.Info("App config loaded",
		"env", cfg.Env,
		"db_path", cfg.DB.Path,
		"feed_url", cfg.Feed.URL,
		"cache_ttl", cfg.Cache.TTL,
		"preload_days", cfg.Preload.Days,
	)
	return &cfg, nil
}
