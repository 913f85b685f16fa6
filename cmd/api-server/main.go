package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/printdesk/printdesk/pkg/apiserver"
	"github.com/printdesk/printdesk/pkg/config"
	"github.com/printdesk/printdesk/pkg/notify"
	"github.com/printdesk/printdesk/pkg/store/postgres"
	redisclient "github.com/printdesk/printdesk/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	dispatcher := notify.NewDispatcher(
		postgres.NewCustomerRepository(db.DB()),
		postgres.NewPreferenceRepository(db.DB()),
		postgres.NewJobRepository(db.DB()),
		postgres.NewNotificationLogRepository(db.DB()),
		notify.NewResendSender(cfg.Email),
		notify.NewTwilioSender(cfg.SMS),
		logger,
		cfg.Notify,
	)

	server := apiserver.NewServer(db, redis, cfg, logger, dispatcher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
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
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
