// Package extract decodes text-bearing documents into plain text locally.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

var (
	ErrEmptyText       = errors.New("document contains no extractable text")
	ErrUnsupportedKind = errors.New("document kind cannot be decoded locally")
)

// Text decodes data of the given kind. Images are not handled here.
func Text(kind models.DocumentKind, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch kind {
	case models.DocumentPDF:
		text, err = PDF(data)
	case models.DocumentDOCX:
		text, err = DOCX(data)
	case models.DocumentTXT:
		text, err = PlainText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if err != nil {
		return "", err
	}

	text = cleanup(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// cleanup normalizes to NFC, drops control characters and collapses runs
// of blank lines.
func cleanup(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r' || r == '\f' || r == '\v':
			return '\n'
		case r < 0x20 || r == 0x7f || r == '\uFFFD':
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
