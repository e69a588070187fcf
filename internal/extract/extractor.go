package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

// Extractor converts one file format into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{}
)

func Register(contentType string, e Extractor) {
	key := Normalize(contentType)
	if key == "" || e == nil {
		return
	}
	registryMu.Lock()
	registry[key] = e
	registryMu.Unlock()
}

// Normalize strips media type parameters and lowercases the type, so
// "text/CSV; charset=utf-8" dispatches the same as "text/csv".
func Normalize(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

// Text extracts plain text from r according to its content type.
// Unknown types fail with ErrUnsupportedFormat; extractions that produce
// only whitespace fail with ErrEmptyContent.
func Text(ctx context.Context, r io.Reader, contentType string) (string, error) {
	key := Normalize(contentType)
	registryMu.RLock()
	extractor := registry[key]
	registryMu.RUnlock()
	if extractor == nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, contentType)
	}
	text, err := extractor.Extract(ctx, r)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.ErrEmptyContent
	}
	return text, nil
}

var extByType = map[string]string{
	".pdf":  "application/pdf",
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".md":   "text/markdown",
}

// TypeForName maps a file name's extension to the content type used for
// dispatch, or "" when the extension is not supported.
func TypeForName(name string) string {
	return extByType[strings.ToLower(filepath.Ext(name))]
}
