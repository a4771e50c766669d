package main

import (
	"context"
	"fmt"

	log "github.com/charmbracelet/log"
	"github.com/ratelab/currex/infra/initializer"
	rates_repo "github.com/ratelab/currex/infra/repository/rates"
	"github.com/ratelab/currex/pkg/config"
	"github.com/ratelab/currex/webapi"
)

// @title Currex API
// @version 1.0.0
// @description Currency exchange rate API backed by the CBR daily feed
// @host localhost:8000
// @BasePath /
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	// Table creation and the one-shot historical preload run in the
	// background; their failure is logged but never blocks serving.
	go func() {
		ctx := context.Background()
		if err := rates_repo.Migrate(deps.DB); err != nil {
			logger.Error("Rate store migration failed", "error", err)
			return
		}
		deps.Exchange.PreloadHistoricalData(ctx, cfg.Preload.Days)
	}()

	app := webapi.SetupApp(deps.Exchange, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server", "env", cfg.Env, "address", addr)
	return app.Listen(addr)
}
