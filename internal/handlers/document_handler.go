package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

type DocumentHandler struct {
	BaseHandler
	documentService services.DocumentService
	validator       *validator.Validator
	maxUploadBytes  int64
}

func NewDocumentHandler(
	documentService services.DocumentService,
	validator *validator.Validator,
	maxUploadBytes int64,
	logger utils.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:     NewBaseHandler(logger),
		documentService: documentService,
		validator:       validator,
		maxUploadBytes:  maxUploadBytes,
	}
}

// UploadDocument registers an uploaded file and starts its analysis
// @Summary Upload document
// @Description Stores the file and triggers text extraction. Poll the status endpoint for progress.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "pdf, docx, txt or image"
// @Success 202 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.handleServiceError(c, services.ErrUploadTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: "multipart field 'file' is required",
		})
		return
	}

	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		h.handleServiceError(c, services.ErrUploadTooLarge)
		return
	}

	h.LogRequest(c, "Uploading document", "file_name", fileHeader.Filename, "size", fileHeader.Size)

	file, err := fileHeader.Open()
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), userID, &services.UploadDocumentRequest{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, doc)
}

// GetDocument returns one of the caller's documents
// @Summary Get document
// @Tags documents
// @Produce json
// @Param id path uint true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} ErrorResponse
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// GetDocumentStatus is the polling endpoint for extraction progress
// @Summary Get document status
// @Tags documents
// @Produce json
// @Param id path uint true "Document ID"
// @Success 200 {object} services.DocumentStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /documents/{id}/status [get]
func (h *DocumentHandler) GetDocumentStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	status, err := h.documentService.GetStatus(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListDocuments lists the caller's documents
// @Summary List documents
// @Tags documents
// @Produce json
// @Param limit query int false "Page size (default: 20, max: 100)"
// @Param offset query int false "Offset"
// @Param status query string false "uploaded, processing, analyzed, error"
// @Param kind query string false "pdf, docx, txt, image"
// @Success 200 {object} services.DocumentListResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	req, ok := h.bindListRequest(c, h.validator)
	if !ok {
		return
	}

	filters := repositories.DocumentFilters{
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != "" {
		s := models.DocumentStatus(req.Status)
		filters.Status = &s
	}
	if kind := c.Query("kind"); kind != "" {
		k := models.DocumentKind(kind)
		filters.Kind = &k
	}
	filters.DateFrom, filters.DateTo = parseDateRange(c)

	list, err := h.documentService.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// DeleteDocument removes a document that no exam references
// @Summary Delete document
// @Tags documents
// @Param id path uint true "Document ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting document", "document_id", id)

	if err := h.documentService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
