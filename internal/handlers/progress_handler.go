package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	exportService   services.ExportService
}

func NewProgressHandler(progressService services.ProgressService, exportService services.ExportService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		exportService:   exportService,
	}
}

// GetMyProgress returns the caller's aggregate across completed exams
// @Summary Get my progress
// @Tags progress
// @Produce json
// @Success 200 {object} services.ProgressResponse
// @Router /progress/me [get]
func (h *ProgressHandler) GetMyProgress(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	progress, err := h.progressService.Get(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ExportMyProgress downloads the caller's results and progress as a workbook
// @Summary Export my progress
// @Tags progress
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /progress/me/export [get]
func (h *ProgressHandler) ExportMyProgress(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting learner report")

	var buf bytes.Buffer
	if err := h.exportService.ExportLearnerReport(c.Request.Context(), userID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="progress-%s.xlsx"`, userID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
