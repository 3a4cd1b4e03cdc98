package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	dynamostore "gatherly-backend/infrastructure/dynamodb"
	"gatherly-backend/interfaces/rest"
	"gatherly-backend/internal/config"
	"gatherly-backend/internal/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	watcher, err := config.NewWatcher(cfg, os.Getenv("CONFIG_FILE"), logger)
	if err != nil {
		logger.Fatal("Failed to start config watcher", zap.Error(err))
	}
	defer watcher.Stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}
	client := awsdynamodb.NewFromConfig(awsCfg)

	store := dynamostore.NewStore(client, dynamostore.Config{
		TableName:      cfg.TableName,
		RequestTimeout: cfg.RequestTimeout,
		EnableTracing:  cfg.Features.EnableTracing,
	}, logger)

	tunables := repository.NewTunables(cfg.CASMaxAttempts, cfg.SyncParallelism)
	watcher.OnChange(func(updated *config.Config) {
		tunables.SetCASMaxAttempts(updated.CASMaxAttempts)
		tunables.SetSyncParallelism(updated.SyncParallelism)
		logger.Info("runtime tunables updated",
			zap.Int("cas_max_attempts", updated.CASMaxAttempts),
			zap.Int("sync_parallelism", updated.SyncParallelism))
	})

	casCfg := repository.DefaultCASConfig()
	casCfg.MaxAttempts = cfg.CASMaxAttempts
	casCfg.Tunables = tunables

	registry := repository.DefaultRegistry()
	hangouts := repository.NewHangoutRepository(store, registry, casCfg, logger)
	series := repository.NewSeriesRepository(store, casCfg, logger)
	syncer := repository.NewPointerSynchronizer(store, hangouts, series, casCfg, cfg.SyncParallelism, logger)
	if cfg.Features.EnablePointerLag {
		syncer.EnableLagLogging(time.Second)
	}
	repos := rest.Repositories{
		Groups:   repository.NewGroupRepository(store, registry, casCfg, logger),
		Hangouts: hangouts,
		Series:   series,
		Offers:   repository.NewOfferRepository(store, casCfg, logger),
		Users:    repository.NewUserRepository(store, casCfg, logger),
		Sync:     syncer,
	}

	router := rest.NewRouter(repos, cfg.Features.EnableMetrics, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", string(cfg.Environment)),
			zap.String("table", cfg.TableName),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
