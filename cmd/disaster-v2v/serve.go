package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/api"
	"github.com/mr1hm/go-disaster-v2v/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	zap.L().Info("server starting", zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	sched := scheduler.New()
	if err := scheduler.Register(sched, cfg, a.jobs()); err != nil {
		return eris.Wrap(err, "register jobs")
	}
	sched.Start()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, a.handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Populate the cache right away instead of waiting for the first tick.
	go func() {
		if err := sched.RunNow(ctx, scheduler.JobRefresh); err != nil {
			zap.L().Warn("initial refresh failed", zap.Error(err))
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	zap.L().Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		zap.L().Error("scheduler shutdown error", zap.Error(err))
	}
	// Websocket streams end when the broadcaster closes in a.close.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown error", zap.Error(err))
	}

	zap.L().Info("shutdown complete")
	return eris.Wrap(serveErr, "http server")
}
