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
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/stockcast/ensemble"
	"github.com/sartorproj/stockcast/forecast"
	"github.com/sartorproj/stockcast/internal/api"
	"github.com/sartorproj/stockcast/internal/config"
	"github.com/sartorproj/stockcast/internal/database"
	"github.com/sartorproj/stockcast/internal/logging"
	"github.com/sartorproj/stockcast/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecasting HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	logrus.SetLevel(logger.GetLevel())
	logrus.SetFormatter(logger.Formatter)

	pool, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := database.NewHistoryRepository(pool)
	var history database.HistorySource = repo
	if cfg.Redis.Enabled {
		rdb, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, serving history without cache")
		} else {
			defer rdb.Close()
			history = database.NewHistoryCache(repo, rdb, cfg.Redis.HistoryTTL, logrus.NewEntry(logger))
		}
	}

	m := metrics.New()
	opts := cfg.Forecast.Options()
	opts.Ensemble.Observer = ensemble.Observers(
		logging.EventLogger(logger.WithField("component", "ensemble")),
		m.Observer(),
	)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Forecaster:     forecast.New(opts),
		History:        history,
		Health:         repo,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
