package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/apiserver"
	"github.com/foshrdd/grievance/pkg/auth"
	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/eventbus"
	"github.com/foshrdd/grievance/pkg/lifecycle"
	"github.com/foshrdd/grievance/pkg/notify"
	"github.com/foshrdd/grievance/pkg/store/postgres"
	redisclient "github.com/foshrdd/grievance/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database, "complaints", logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o750); err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	engine := lifecycle.NewEngine(
		postgres.NewComplaintRepository(db.DB()),
		postgres.NewRoutingRepository(db.DB()),
		postgres.NewAttachmentRepository(db.DB()),
		postgres.NewDirectoryRepository(db.DB()),
		notify.NewSMTPEmitter(cfg.SMTP, logger),
		notify.NewSMSSender(cfg.SMS, logger),
		eventbus.NewBus(redis.Client()),
		cfg.Ticket.Prefix,
		logger,
	)

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	server := apiserver.NewServer(db, engine, tokens, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting metrics listener", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics listener error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics listener forced to shutdown", zap.Error(err))
	}
}
