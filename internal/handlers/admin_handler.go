package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
)

// AdminHandler exposes operator recovery actions for failed pipeline items
type AdminHandler struct {
	BaseHandler
	documentService services.DocumentService
	examService     services.ExamService
}

func NewAdminHandler(documentService services.DocumentService, examService services.ExamService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:     NewBaseHandler(logger),
		documentService: documentService,
		examService:     examService,
	}
}

// ResetDocument moves a failed document back to uploaded and re-runs extraction
// @Summary Reset failed document
// @Tags admin
// @Produce json
// @Param id path uint true "Document ID"
// @Success 202 {object} services.DocumentStatusResponse
// @Failure 409 {object} ErrorResponse "document is not in error"
// @Router /admin/documents/{id}/reset [post]
func (h *AdminHandler) ResetDocument(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	operatorID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Resetting document", "document_id", id, "operator_id", operatorID)

	status, err := h.documentService.Reset(c.Request.Context(), id, operatorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, status)
}

// ResetExam drops a failed exam's partial questions and re-runs generation
// @Summary Reset failed exam
// @Tags admin
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 202 {object} services.ExamStatusResponse
// @Failure 409 {object} ErrorResponse "exam is not in error"
// @Router /admin/exams/{id}/reset [post]
func (h *AdminHandler) ResetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	operatorID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Resetting exam", "exam_id", id, "operator_id", operatorID)

	status, err := h.examService.Reset(c.Request.Context(), id, operatorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, status)
}
