package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/cupido/internal/config"
	"github.com/sandevgo/cupido/internal/service/memory"
	"github.com/sandevgo/cupido/internal/service/outbox"
	"github.com/sandevgo/cupido/internal/storage/sqlite"
	"github.com/sandevgo/cupido/internal/tokenizer"
	"github.com/sandevgo/cupido/internal/transport/httpapi"
	"github.com/sandevgo/cupido/pkg/log"
	"github.com/sandevgo/cupido/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	serverCfg := config.NewServerConfig(ctx)
	tokCfg := config.NewTokenizerConfig(ctx)

	// 2. Storage
	db, turnsRepo, summariesRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// 3. Token estimator
	estimator := tokenizer.NewEstimator(ctx, tokCfg)

	// 4. Memory service
	mem := memory.New(turnsRepo, summariesRepo, estimator)

	// 5. Write-behind outbox (optional)
	var box *outbox.Outbox
	if appCfg.WriteBehind {
		box = outbox.New(mem, 256)
	}

	// Shutdown runs in slice order: stop accepting requests, drain the
	// outbox, then close the database.
	services = append(services, httpapi.NewServer(ctx, serverCfg, appCfg, mem, box))
	if box != nil {
		services = append(services, box)
	}
	services = append(services, srv.NewCleanup(db.Close))

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, *sqlite.TurnsRepo, *sqlite.SummariesRepo, error) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, nil, err
	}
	return db, sqlite.NewTurnsRepo(db), sqlite.NewSummariesRepo(db), nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
	}

	return nil
}
