package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/futuretasks/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FutureTasks API server",
		Long:  "Start the FutureTasks API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := server.New(app.cfg, server.Dependencies{
		Store:   app.store,
		Tasks:   app.tasks,
		Theme:   app.theme,
		Reports: app.reports,
		Auth:    app.auth,
		Metrics: app.metrics,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Infow("Starting FutureTasks API server",
		"port", app.cfg.Server.Port,
		"environment", app.cfg.App.Environment,
		"storage", app.cfg.Storage.Driver,
		"auth", app.cfg.Auth.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// flush the final state
	if err := app.tasks.Save(shutdownCtx); err != nil {
		app.logger.Warnw("Final save failed", "error", err)
	}
	return nil
}
