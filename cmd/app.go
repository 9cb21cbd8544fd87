package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/config"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/storage"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
	"github.com/SAP-F-2025/exam-pipeline-service/pkg"
)

// app holds everything a command needs once wiring succeeded
type app struct {
	cfg            *config.Config
	logger         *slog.Logger
	db             *gorm.DB
	redisClient    *redis.Client
	repoManager    repositories.RepositoryManager
	validator      *validator.Validator
	serviceManager services.ServiceManager
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

// openDatabase loads config and connects to PostgreSQL only
func openDatabase() (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

// bootstrap wires repositories, external adapters and services
func bootstrap(ctx context.Context) (*app, error) {
	cfg, logger, db, err := openDatabase()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	if cfg.RedisURL != "" {
		a.redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			// the cache is optional; repositories fall back to the database
			logger.Warn("Failed to initialize Redis", "error", err)
			a.redisClient = nil
		}
	}

	a.repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: a.redisClient,
	})
	if err := a.repoManager.Initialize(); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	a.validator = validator.New()

	provider, err := content.NewProvider(ctx, cfg.Content, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize content provider: %w", err)
	}
	contentClient := content.NewClient(provider, logger, content.ClientOptions{
		Timeout:   cfg.Content.Timeout,
		MaxTokens: cfg.Content.MaxTokens,
	})

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	publisher, err := newEventPublisher(cfg, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.serviceManager = services.NewDefaultServiceManager(db, a.repoManager.GetRepository(), logger, a.validator, services.Dependencies{
		Content:        contentClient,
		Blobs:          blobs,
		Events:         publisher,
		Tasks:          services.NewTaskRunner(logger),
		UploadMaxBytes: cfg.UploadMaxBytes,
	})
	if err := a.serviceManager.Initialize(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return a, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	if cfg.MinIO.Endpoint == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required in production")
		}
		logger.Warn("MINIO_ENDPOINT not set, keeping uploads in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewMinIOStore(ctx, cfg.MinIO, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	return store, nil
}

func newEventPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, domain events are not delivered")
		return events.NewMockEventPublisher(logger), nil
	}
	publisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.EventTopic, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	return publisher, nil
}

// close releases everything bootstrap opened, in reverse order
func (a *app) close(ctx context.Context) {
	if a.serviceManager != nil {
		if err := a.serviceManager.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown services", "error", err)
		}
	}

	// an initialized repository owns the database and Redis connections
	if a.repoManager != nil && a.repoManager.GetRepository() != nil {
		if err := a.repoManager.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown repositories", "error", err)
		}
		return
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
