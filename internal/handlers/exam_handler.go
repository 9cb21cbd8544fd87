package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/services"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

type ExamHandler struct {
	BaseHandler
	examService    services.ExamService
	sessionService services.SessionService
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewExamHandler(
	examService services.ExamService,
	sessionService services.SessionService,
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:    NewBaseHandler(logger),
		examService:    examService,
		sessionService: sessionService,
		gradingService: gradingService,
		validator:      validator,
	}
}

// CreateExam creates an exam from an analyzed document
// @Summary Create exam
// @Description Creates the exam and starts question generation. Poll the status endpoint until ready.
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 202 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating exam", "document_id", req.DocumentID, "question_count", req.QuestionCount)

	exam, err := h.examService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, exam)
}

// GetExam returns the learner view of an exam; correct answers are never included
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamView
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	view, err := h.examService.GetForLearner(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetExamStatus is the polling endpoint for generation and session state
// @Summary Get exam status
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamStatusResponse
// @Router /exams/{id}/status [get]
func (h *ExamHandler) GetExamStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	status, err := h.examService.GetStatus(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListExams lists the caller's exams
// @Summary List exams
// @Tags exams
// @Produce json
// @Param limit query int false "Page size (default: 20, max: 100)"
// @Param offset query int false "Offset"
// @Param status query string false "Stored status filter"
// @Param document_id query int false "Source document"
// @Success 200 {object} services.ExamListResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	req, ok := h.bindListRequest(c, h.validator)
	if !ok {
		return
	}

	filters := repositories.ExamFilters{
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != "" {
		s := models.ExamStatus(req.Status)
		filters.Status = &s
	}
	if docID, err := strconv.ParseUint(c.Query("document_id"), 10, 32); err == nil {
		id := uint(docID)
		filters.DocumentID = &id
	}
	filters.DateFrom, filters.DateTo = parseDateRange(c)

	list, err := h.examService.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// StartExam begins the session and returns the questions
// @Summary Start exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamView
// @Failure 409 {object} ErrorResponse "already started, already completed or not ready"
// @Failure 410 {object} ErrorResponse "expired"
// @Router /exams/{id}/start [post]
func (h *ExamHandler) StartExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting exam", "exam_id", id)

	view, err := h.sessionService.Start(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitExam grades the single answer batch and completes the exam
// @Summary Submit answers
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param answers body services.SubmitAnswersRequest true "Answer batch"
// @Success 201 {object} models.ExamResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /exams/{id}/submit [post]
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	// An empty body is an empty batch
	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting exam", "exam_id", id, "answers", len(req.Answers))

	result, err := h.gradingService.Submit(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetExamResult returns the stored result of a completed exam
// @Summary Get result
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.ExamResult
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/result [get]
func (h *ExamHandler) GetExamResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	result, err := h.gradingService.GetResult(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
