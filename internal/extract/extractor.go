// Package extract provides text extraction from uploaded files, dispatching
// on the declared MIME type.
package extract

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupportedType is returned for MIME types the extractor cannot handle.
// Callers must not persist a file record in that case.
var ErrUnsupportedType = errors.New("unsupported file type")

const (
	MimePDF   = "application/pdf"
	MimePlain = "text/plain"
	MimeCSV   = "text/csv"
)

// Extractor extracts plain text from uploaded document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the given MIME type can be extracted.
func (e *Extractor) Supported(mimeType string) bool {
	switch mimeType {
	case MimePDF, MimePlain, MimeCSV:
		return true
	}
	return false
}

// Extract reads the file at path and returns its text content based on the
// declared MIME type. Returns ErrUnsupportedType (wrapped) for anything
// other than PDF, plain text, or CSV.
func (e *Extractor) Extract(path, mimeType string) (string, error) {
	if !e.Supported(mimeType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return e.ExtractBytes(content, mimeType)
}

// ExtractBytes extracts text from content based on the given MIME type.
func (e *Extractor) ExtractBytes(content []byte, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		return extractPDF(content)
	case MimePlain:
		return extractPlain(content)
	case MimeCSV:
		return extractCSV(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}
