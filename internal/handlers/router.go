package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

// cacheStatsProvider is implemented by repositories that front a cache
type cacheStatsProvider interface {
	CacheStats(ctx context.Context) (map[string]interface{}, error)
}

type HandlerManager struct {
	documentHandler *DocumentHandler
	examHandler     *ExamHandler
	progressHandler *ProgressHandler
	adminHandler    *AdminHandler
	authMiddleware  *CasdoorAuthMiddleware

	serviceManager services.ServiceManager
	repo           repositories.Repository
	uploadMaxBytes int64
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	repo repositories.Repository,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	uploadMaxBytes int64,
) *HandlerManager {
	return &HandlerManager{
		documentHandler: NewDocumentHandler(serviceManager.Document(), validator, uploadMaxBytes, logger),
		examHandler:     NewExamHandler(serviceManager.Exam(), serviceManager.Session(), serviceManager.Grading(), validator, logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), serviceManager.Export(), logger),
		adminHandler:    NewAdminHandler(serviceManager.Document(), serviceManager.Exam(), logger),
		authMiddleware:  authMiddleware,
		serviceManager:  serviceManager,
		repo:            repo,
		uploadMaxBytes:  uploadMaxBytes,
		logger:          logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		documents := v1.Group("/documents")
		{
			documents.POST("", BodyLimitMiddleware(hm.uploadMaxBytes), hm.documentHandler.UploadDocument)
			documents.GET("", hm.documentHandler.ListDocuments)
			documents.GET("/:id", hm.documentHandler.GetDocument)
			documents.GET("/:id/status", hm.documentHandler.GetDocumentStatus)
			documents.DELETE("/:id", hm.documentHandler.DeleteDocument)
		}

		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("/:id/status", hm.examHandler.GetExamStatus)

			// Session
			exams.POST("/:id/start", hm.examHandler.StartExam)
			exams.POST("/:id/submit", hm.examHandler.SubmitExam)
			exams.GET("/:id/result", hm.examHandler.GetExamResult)
		}

		progress := v1.Group("/progress")
		{
			progress.GET("/me", hm.progressHandler.GetMyProgress)
			progress.GET("/me/export", hm.progressHandler.ExportMyProgress)
		}

		// Operator recovery - Teachers and Admins only
		admin := v1.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			admin.POST("/documents/:id/reset", hm.adminHandler.ResetDocument)
			admin.POST("/exams/:id/reset", hm.adminHandler.ResetExam)
		}
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	body := gin.H{
		"status":    "healthy",
		"service":   "exam-pipeline-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		hm.logger.Error("Health check failed", "error", err)
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	if provider, ok := hm.repo.(cacheStatsProvider); ok {
		stats, err := provider.CacheStats(ctx)
		if err != nil {
			hm.logger.Warn("Failed to read cache stats", "error", err)
		}
		body["cache"] = stats
	}

	c.JSON(http.StatusOK, body)
}
