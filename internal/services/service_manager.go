package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/storage"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
	"gorm.io/gorm"
)

// Dependencies are the adapters the pipeline talks to
type Dependencies struct {
	Content content.Service
	Blobs   storage.BlobStore
	Events  events.EventPublisher
	Clock   Clock
	Tasks   *TaskRunner

	// UploadMaxBytes rejects larger uploads; zero disables the check
	UploadMaxBytes int64
}

func (d Dependencies) withDefaults(logger *slog.Logger) Dependencies {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.Events == nil {
		d.Events = events.NewMockEventPublisher(logger)
	}
	if d.Blobs == nil {
		d.Blobs = storage.NewMemoryStore()
	}
	if d.Tasks == nil {
		d.Tasks = NewTaskRunner(logger)
	}
	return d
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// ShutdownTimeout bounds how long Shutdown waits for running stages
	ShutdownTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	deps      Dependencies
	config    ServiceManagerConfig

	// Service instances
	documentService DocumentService
	examService     ExamService
	sessionService  SessionService
	gradingService  GradingService
	progressService ProgressService
	exportService   ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		deps:      deps.withDefaults(logger),
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, deps, ServiceManagerConfig{
		ShutdownTimeout: 30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.deps.Content == nil {
		return fmt.Errorf("content service is required")
	}

	sm.progressService = NewProgressService(sm.repo, sm.logger, sm.deps)
	sm.logger.Info("Progress service initialized")

	sm.documentService = NewDocumentService(sm.repo, sm.logger, sm.validator, sm.deps)
	sm.logger.Info("Document service initialized")

	sm.examService = NewExamService(sm.repo, sm.logger, sm.validator, sm.deps)
	sm.logger.Info("Exam service initialized")

	sm.sessionService = NewSessionService(sm.repo, sm.logger, sm.deps)
	sm.logger.Info("Session service initialized")

	sm.gradingService = NewGradingService(sm.db, sm.repo, sm.logger, sm.validator, sm.progressService, sm.deps)
	sm.logger.Info("Grading service initialized")

	sm.exportService = NewExportService(sm.repo, sm.logger, sm.deps)
	sm.logger.Info("Export service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Document() DocumentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.documentService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.examService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.progressService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting background stages and waits for running ones
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.ShutdownTimeout)
		defer cancel()
	}

	var firstErr error
	if err := sm.deps.Tasks.Close(ctx); err != nil {
		sm.logger.Error("Background stages did not finish", "error", err)
		firstErr = err
	}
	if err := sm.deps.Events.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down")
	return firstErr
}
