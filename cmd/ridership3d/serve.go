package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ridership3d/internal/api"
	"github.com/ridership3d/internal/common/maintenance"
	"github.com/ridership3d/internal/render"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the render API over HTTP",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer e.Close()
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	cfg := e.cfg
	log := e.log

	renderHandler := api.NewRenderHandler(e.newPipeline(), e.fixedSource(), cfg.Data.MaxUploadSize, log)
	if cfg.Map.ChartFont != "" {
		font, err := render.LoadFont(cfg.Map.ChartFont)
		if err != nil {
			return err
		}
		renderHandler.WithChartFont(font)
	}

	deps := api.Deps{
		Render:      renderHandler,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if e.history != nil {
		deps.History = e.history
		deps.DB = e.db

		scheduler := maintenance.NewPruneScheduler(e.history, log, maintenance.SchedulerConfig{
			Interval:     cfg.History.PruneInterval,
			Retention:    cfg.History.Retention,
			InitialDelay: time.Minute,
		})
		if err := scheduler.Start(ctx); err != nil {
			log.Error("Failed to start prune scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting",
			"port", cfg.Server.Port,
			"schema", cfg.Data.SchemaKind,
			"history", cfg.History.Driver != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		return err
	}
	log.Info("API server stopped")
	return nil
}
