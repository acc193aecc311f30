package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/notify"
	"github.com/foshrdd/grievance/pkg/store/postgres"
	"github.com/foshrdd/grievance/pkg/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database, "io", logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sweeper := sweep.NewSweeper(
		postgres.NewComplaintRepository(db.DB()),
		postgres.NewNotificationRepository(db.DB()),
		postgres.NewDirectoryRepository(db.DB()),
		notify.NewSMTPEmitter(cfg.SMTP, logger),
		cfg.Sweep,
		logger,
	)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("Starting metrics listener", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics listener error", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Deadline sweeper shutting down")
	metricsServer.Close()
}
