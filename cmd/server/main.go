package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/api"
	"github.com/tradepulse-ai/tradepulse/internal/config"
	"github.com/tradepulse-ai/tradepulse/internal/database"
	"github.com/tradepulse-ai/tradepulse/internal/engine"
	"github.com/tradepulse-ai/tradepulse/internal/services"
	"github.com/tradepulse-ai/tradepulse/internal/telemetry"
)

func main() {
	// Local development convenience; deployments set real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	shutdownTracing, err := telemetry.Init(context.Background())
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	var (
		db        *database.PostgresDB
		redis     *database.RedisClient
		tradeRepo *database.TradeRepository
		modelSt   *database.ModelStore
	)

	if cfg.Database.Enabled {
		db, err = database.NewPostgresConnection(context.Background(), cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		tradeRepo = database.NewTradeRepository(db.Pool)
		if err := tradeRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("Failed to prepare trades schema: %v", err)
		}
	}

	if cfg.Redis.Enabled {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redis.Close()

		modelSt = database.NewModelStore(redis, logger)
	}

	snapshots := services.NewSnapshotService(tradeRepo, modelSt, logger)
	eng := engine.New(cfg.Engine, snapshots, logger)

	trades, modelSnapshots := snapshots.Load(context.Background())
	eng.Rehydrate(trades, modelSnapshots)
	if len(trades) > 0 || len(modelSnapshots) > 0 {
		logger.WithFields(logrus.Fields{
			"trades":     len(trades),
			"partitions": len(modelSnapshots),
		}).Info("Rehydrated engine state")
	}

	notifier := services.NewNotificationService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, eng, notifier, db, redis, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Environment != "development" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
