package commands

import (
	"context"
	"fmt"

	"github.com/futuretasks/core/internal/adapters/repository"
	"github.com/futuretasks/core/internal/application/services"
	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/infrastructure/metrics"
	"github.com/futuretasks/core/internal/ports"
)

// application bundles the wired services shared by every command.
type application struct {
	cfg     *config.Config
	logger  *logger.Logger
	store   ports.KeyValueStore
	metrics *metrics.Collector
	tasks   *services.TaskStore
	theme   *services.ThemeService
	reports *services.ReportService
	auth    *services.AuthService
}

func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := repository.NewKeyValueStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	collector := metrics.New()
	clock := services.RealClock{}

	tasks := services.NewTaskStore(store, services.TaskStoreOptions{
		TasksKey:    cfg.Storage.TasksKey,
		SeedSamples: cfg.App.SeedSamples,
		Clock:       clock,
		Recorder:    collector,
		Logger:      appLogger,
	})
	tasks.Load(ctx)

	return &application{
		cfg:     cfg,
		logger:  appLogger,
		store:   store,
		metrics: collector,
		tasks:   tasks,
		theme:   services.NewThemeService(store, cfg.Storage.ThemeKey, appLogger),
		reports: services.NewReportService(clock),
		auth:    services.NewAuthService(cfg.Auth, clock, appLogger),
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warnw("Failed to close storage", "error", err)
	}
	a.logger.Close()
}
