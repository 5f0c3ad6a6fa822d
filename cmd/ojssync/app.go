package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/journal-portal/backend/internal/config"
	"github.com/journal-portal/backend/internal/repository/postgres"
	"github.com/journal-portal/backend/internal/storage"
	"github.com/journal-portal/backend/internal/telemetry"
	"github.com/journal-portal/backend/internal/usecase"
	"github.com/journal-portal/backend/pkg/ojs"
)

// app holds everything a subcommand may need. Close releases it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	imports *usecase.ImportUsecase
	exports *usecase.ExportUsecase
	auth    *usecase.AuthUsecase

	shutdownMetrics func(context.Context) error
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	shutdownMetrics, err := telemetry.Init(cfg.Telemetry.Stdout, cfg.Telemetry.Interval)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	log.Println("Connected to PostgreSQL")

	store := postgres.NewStore(pool)
	repos := store.Repositories()
	files := storage.NewOSFileStore(cfg.Media.Root)
	metrics := usecase.NewSyncMetrics()
	clients := usecase.NewClientFactory(cfg.OJS.ClientOptions(logger)...)

	return &app{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		imports:         usecase.NewImportUsecase(repos.Journals, store, clients, files, metrics, logger),
		exports:         usecase.NewExportUsecase(repos, clients, files, metrics, logger),
		auth:            usecase.NewAuthUsecase(store.Users(), &cfg.JWT),
		shutdownMetrics: shutdownMetrics,
	}, nil
}

// client builds a concrete OJS client for the journal, for the commands that
// need calls outside the sync usecases.
func (a *app) client(ctx context.Context, journalID string) (*ojs.Client, error) {
	id, err := parseID("journal", journalID)
	if err != nil {
		return nil, err
	}
	journal, err := a.imports.Journal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", id, err)
	}
	return ojs.NewClient(journal.OJSBaseURL, journal.OJSAPIKey, a.cfg.OJS.ClientOptions(a.logger)...), nil
}

func (a *app) Close() {
	if err := a.shutdownMetrics(context.Background()); err != nil {
		log.Printf("Telemetry shutdown: %v", err)
	}
	a.pool.Close()
}
