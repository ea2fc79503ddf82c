package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lensgate/internal/config"
	"lensgate/internal/http"
	"lensgate/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c *cli) error {
	a, err := newApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	return run(ctx, a, c.cfg)
}

// run serves the API until ctx is done. It returns only after the startup sync,
// if any, has finished, so the caller can close the store safely.
func run(ctx context.Context, a *app, cfg *config.Config) error {
	if cfg.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN is empty; the admin sync endpoint will reject every request")
	}

	router := http.NewRouter(&http.Deps{
		SyncService:    a.sync,
		ContentService: a.content,
		DB:             a.db,
		AdminToken:     cfg.AdminToken,
		Media:          a.media,
		MediaPrefix:    cfg.MediaURLPrefix,
	})

	var background sync.WaitGroup
	defer func() {
		slog.Debug("Waiting for background work")
		background.Wait()
	}()
	if cfg.SyncOnStart {
		background.Go(func() {
			backgroundSync(ctx, a.sync)
		})
	}

	addr := ":" + cfg.APIPort
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func backgroundSync(ctx context.Context, syncService service.SyncService) {
	slog.Info("Starting background sync")
	summary, err := syncService.Sync(ctx)
	if err != nil {
		slog.Error("Background sync failed", "error", err, "code", service.ErrorCode(err))
		return
	}
	slog.Info("Background sync completed",
		"lenses", summary.Lenses,
		"entries", summary.Entries,
		"incremental", summary.Incremental,
	)
}
