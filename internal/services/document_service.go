package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/content"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/events"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/extract"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/repositories"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/storage"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/validator"
)

type documentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	deps      Dependencies
}

func NewDocumentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies) DocumentService {
	return &documentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		deps:      deps.withDefaults(logger),
	}
}

// ===== INGESTION =====

func (s *documentService) Upload(ctx context.Context, ownerID string, req *UploadDocumentRequest) (*models.Document, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if s.deps.UploadMaxBytes > 0 && int64(len(req.Data)) > s.deps.UploadMaxBytes {
		return nil, ErrUploadTooLarge
	}

	kind, ok := models.DetectDocumentKind(req.FileName, req.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, req.FileName)
	}

	if errs := s.validator.Validate(&validator.DocumentUploadRequest{
		FileName:  req.FileName,
		MimeType:  req.MimeType,
		Kind:      kind,
		SizeBytes: int64(len(req.Data)),
	}); len(errs) > 0 {
		return nil, errs
	}

	s.logger.Info("Uploading document", "owner_id", ownerID, "file_name", req.FileName, "kind", kind, "size", len(req.Data))

	key := storage.DocumentKey(ownerID, req.FileName)
	if err := s.deps.Blobs.Put(ctx, key, req.Data, req.MimeType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := &models.Document{
		OwnerID:    ownerID,
		FileName:   req.FileName,
		Kind:       kind,
		MimeType:   req.MimeType,
		SizeBytes:  int64(len(req.Data)),
		StorageKey: key,
		Status:     models.DocumentUploaded,
	}
	if err := s.repo.Document().Create(ctx, nil, doc); err != nil {
		if delErr := s.deps.Blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Document uploaded", "document_id", doc.ID)
	s.triggerExtraction(ctx, doc.ID)

	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, id uint, userID string) (*models.Document, error) {
	doc, err := s.repo.Document().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc.OwnerID != userID {
		return nil, NewPermissionError(userID, id, "document", "read", "not owner")
	}
	return doc, nil
}

func (s *documentService) GetStatus(ctx context.Context, id uint, userID string) (*DocumentStatusResponse, error) {
	row, err := s.repo.Document().GetStatus(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document status: %w", err)
	}
	if row.OwnerID != userID {
		return nil, NewPermissionError(userID, id, "document", "read", "not owner")
	}
	return &DocumentStatusResponse{DocumentStatusRow: row, Message: row.Status.StatusMessage()}, nil
}

func (s *documentService) List(ctx context.Context, ownerID string, filters repositories.DocumentFilters) (*DocumentListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}

	docs, total, err := s.repo.Document().ListByOwner(ctx, nil, ownerID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return &DocumentListResponse{
		Documents: docs,
		Total:     total,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}, nil
}

// Delete removes a document that no exam references
func (s *documentService) Delete(ctx context.Context, id uint, userID string) error {
	doc, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		count, err := txRepo.Exam().CountByDocument(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to count exams: %w", err)
		}
		if count > 0 {
			return ErrDocumentInUse
		}
		return txRepo.Document().Delete(ctx, nil, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrDocumentNotFound
		}
		return err
	}

	if err := s.deps.Blobs.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("Failed to delete document blob", "document_id", id, "key", doc.StorageKey, "error", err)
	}

	s.logger.Info("Document deleted", "document_id", id, "user_id", userID)
	return nil
}

// ===== EXTRACTION STAGE =====

func (s *documentService) triggerExtraction(ctx context.Context, id uint) {
	s.deps.Tasks.Go(ctx, fmt.Sprintf("extract-document-%d", id),
		func(ctx context.Context) {
			if err := s.Extract(ctx, id); err != nil {
				s.logger.Error("Extraction stage error", "document_id", id, "error", err)
			}
		},
		func(ctx context.Context, recovered any) {
			s.failExtraction(ctx, id, fmt.Errorf("internal error: %v", recovered))
		},
	)
}

func (s *documentService) Extract(ctx context.Context, id uint) error {
	claimed, err := s.repo.Document().CompareAndSetStatus(ctx, nil, id,
		[]models.DocumentStatus{models.DocumentUploaded}, models.DocumentProcessing, nil)
	if err != nil {
		return fmt.Errorf("failed to claim document: %w", err)
	}
	if !claimed {
		s.logger.Info("Extraction skipped, document not in uploaded state", "document_id", id)
		return nil
	}

	s.logger.Info("Starting extraction", "document_id", id)

	doc, text, err := s.extractText(ctx, id)
	if err != nil {
		s.failExtraction(ctx, id, err)
		return nil
	}

	ok, err := s.repo.Document().CompareAndSetStatus(ctx, nil, id,
		[]models.DocumentStatus{models.DocumentProcessing}, models.DocumentAnalyzed,
		map[string]any{
			"content_text":  text,
			"error_message": nil,
			"analyzed_at":   s.deps.Clock.Now(),
		})
	if err != nil {
		s.failExtraction(ctx, id, fmt.Errorf("failed to mark document analyzed: %w", err))
		return nil
	}
	if !ok {
		s.logger.Warn("Document left processing state during extraction", "document_id", id)
		return nil
	}

	s.logger.Info("Document analyzed", "document_id", id, "characters", len(text))
	s.publish(ctx, events.DocumentAnalyzed, events.DocumentEventData{
		DocumentID: id,
		OwnerID:    doc.OwnerID,
		Kind:       string(doc.Kind),
	})
	return nil
}

func (s *documentService) extractText(ctx context.Context, id uint) (*models.Document, string, error) {
	doc, err := s.repo.Document().GetByID(ctx, nil, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load document: %w", err)
	}

	data, err := s.deps.Blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return doc, "", fmt.Errorf("failed to read upload: %w", err)
	}

	var text string
	if doc.Kind == models.DocumentImage {
		text, err = s.deps.Content.ExtractText(ctx, data, doc.Kind, doc.MimeType)
	} else {
		text, err = extract.Text(doc.Kind, data)
	}
	if err != nil {
		return doc, "", err
	}
	if strings.TrimSpace(text) == "" {
		return doc, "", extract.ErrEmptyText
	}
	return doc, text, nil
}

func (s *documentService) failExtraction(ctx context.Context, id uint, cause error) {
	msg := extractionFailureMessage(cause)
	s.logger.Error("Extraction failed", "document_id", id, "error", cause)

	ok, err := s.repo.Document().CompareAndSetStatus(ctx, nil, id,
		[]models.DocumentStatus{models.DocumentProcessing}, models.DocumentError,
		map[string]any{"error_message": msg})
	if err != nil {
		s.logger.Error("Failed to record extraction failure", "document_id", id, "error", err)
		return
	}
	if !ok {
		return
	}

	data := events.DocumentEventData{DocumentID: id, ErrorMessage: msg}
	if doc, err := s.repo.Document().GetByID(ctx, nil, id); err == nil {
		data.OwnerID = doc.OwnerID
		data.Kind = string(doc.Kind)
	}
	s.publish(ctx, events.DocumentFailed, data)
}

// Reset is the operator action for a document stuck in error
func (s *documentService) Reset(ctx context.Context, id uint, operatorID string) (*DocumentStatusResponse, error) {
	ok, err := s.repo.Document().CompareAndSetStatus(ctx, nil, id,
		[]models.DocumentStatus{models.DocumentError}, models.DocumentUploaded,
		map[string]any{
			"error_message": nil,
			"content_text":  nil,
			"analyzed_at":   nil,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to reset document: %w", err)
	}

	row, err := s.repo.Document().GetStatus(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document status: %w", err)
	}
	if !ok {
		return nil, NewStateConflictError("document", id, string(row.Status), ReasonNotResettable)
	}

	s.logger.Info("Document reset", "document_id", id, "operator_id", operatorID)
	s.triggerExtraction(ctx, id)

	return &DocumentStatusResponse{DocumentStatusRow: row, Message: row.Status.StatusMessage()}, nil
}

func (s *documentService) publish(ctx context.Context, eventType events.EventType, data any) {
	if err := s.deps.Events.Publish(ctx, events.NewEvent(eventType, s.deps.Clock.Now(), data)); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func extractionFailureMessage(err error) string {
	switch {
	case errors.Is(err, extract.ErrEmptyText), errors.Is(err, content.ErrEmptyText):
		return "No text could be extracted from the document"
	case errors.Is(err, extract.ErrUnsupportedKind), errors.Is(err, content.ErrUnsupportedKind):
		return "Document type cannot be analyzed"
	case errors.Is(err, storage.ErrObjectNotFound):
		return "Uploaded file is missing"
	case content.IsRetryable(err):
		return "Content service is busy, please retry later"
	default:
		return fmt.Sprintf("Document analysis failed: %v", err)
	}
}
