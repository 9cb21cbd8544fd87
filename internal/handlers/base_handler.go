package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the helpers shared by every handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// getUserID returns the authenticated caller or writes a 401
func (h *BaseHandler) getUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		details := "ID must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// bindListRequest reads limit/offset/sort from the query string
func (h *BaseHandler) bindListRequest(c *gin.Context, v *validator.Validator) (*validator.ListRequest, bool) {
	var req validator.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return nil, false
	}
	if errs := v.Validate(&req); len(errs) > 0 {
		h.handleServiceError(c, errs)
		return nil, false
	}
	return &req, true
}

// parseDateRange reads optional RFC3339 date_from/date_to filters
func parseDateRange(c *gin.Context) (from, to *time.Time) {
	if t, err := time.Parse(time.RFC3339, c.Query("date_from")); err == nil {
		from = &t
	}
	if t, err := time.Parse(time.RFC3339, c.Query("date_to")); err == nil {
		to = &t
	}
	return from, to
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var conflict *services.StateConflictError
	if errors.As(err, &conflict) {
		status := http.StatusConflict
		if conflict.Reason == services.ReasonExpired {
			status = http.StatusGone
		}
		c.JSON(status, ErrorResponse{
			Message: conflict.Message(),
			Details: conflict,
		})
		return
	}

	var consistency *services.ConsistencyError
	if errors.As(err, &consistency) {
		h.LogError(c, err, "Result consistency check failed",
			"exam_id", consistency.ExamID,
			"learner_id", consistency.LearnerID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Document not found",
		})
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exam not found",
		})
	case errors.Is(err, services.ErrResultNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Result not found",
		})
	case errors.Is(err, services.ErrDocumentNotAnalyzed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Document has not been analyzed yet",
		})
	case errors.Is(err, services.ErrDocumentInUse):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Document cannot be deleted - exams were created from it",
		})
	case errors.Is(err, services.ErrUnsupportedKind):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Message: "Unsupported document type",
			Details: "supported types are pdf, docx, txt and images",
		})
	case errors.Is(err, services.ErrUploadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "Uploaded file is too large",
		})
	case errors.Is(err, services.ErrEmptyUpload):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Uploaded file is empty",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
