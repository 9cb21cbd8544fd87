package models

import (
	"path/filepath"
	"strings"
	"time"
)

type DocumentKind string

const (
	DocumentPDF   DocumentKind = "pdf"
	DocumentDOCX  DocumentKind = "docx"
	DocumentTXT   DocumentKind = "txt"
	DocumentImage DocumentKind = "image"
)

type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentAnalyzed   DocumentStatus = "analyzed"
	DocumentError      DocumentStatus = "error"
)

type Document struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	OwnerID   string       `json:"owner_id" gorm:"not null;index;size:255"`
	FileName  string       `json:"file_name" gorm:"not null;size:255"`
	Kind      DocumentKind `json:"kind" gorm:"not null;size:16"`
	MimeType  string       `json:"mime_type" gorm:"size:100"`
	SizeBytes int64        `json:"size_bytes"`

	// Location of the raw bytes in the blob store
	StorageKey string `json:"-" gorm:"not null;size:500"`

	Status       DocumentStatus `json:"status" gorm:"not null;default:uploaded;index;size:16"`
	ContentText  *string        `json:"content_text,omitempty" gorm:"type:text"`
	ErrorMessage *string        `json:"error_message" gorm:"type:text"`
	AnalyzedAt   *time.Time     `json:"analyzed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// HasContent reports whether extraction produced usable text
func (d *Document) HasContent() bool {
	return d.ContentText != nil && strings.TrimSpace(*d.ContentText) != ""
}

// DetectDocumentKind maps a file name and declared mime type to a supported kind.
func DetectDocumentKind(fileName, mimeType string) (DocumentKind, bool) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return DocumentPDF, true
	case ".docx":
		return DocumentDOCX, true
	case ".txt", ".text", ".md":
		return DocumentTXT, true
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return DocumentImage, true
	}

	mt := strings.ToLower(mimeType)
	switch {
	case mt == "application/pdf":
		return DocumentPDF, true
	case mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return DocumentDOCX, true
	case strings.HasPrefix(mt, "text/plain"):
		return DocumentTXT, true
	case strings.HasPrefix(mt, "image/"):
		return DocumentImage, true
	}
	return "", false
}
