// Package storage keeps the raw bytes of uploaded documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// BlobStore stores uploaded document bytes under opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// DocumentKey builds a unique object key for an owner's upload. Only the
// extension of the client supplied file name is kept.
func DocumentKey(ownerID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if len(ext) > 9 || sanitizeSegment(strings.TrimPrefix(ext, ".")) != strings.TrimPrefix(ext, ".") {
		ext = ""
	}
	return fmt.Sprintf("documents/%s/%s%s", sanitizeSegment(ownerID), uuid.NewString(), ext)
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "anonymous"
	}
	return s
}
