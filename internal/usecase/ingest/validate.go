package ingest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// DefaultMaxUploadBytes caps an upload at 100 MB.
const DefaultMaxUploadBytes = 100 << 20

// DefaultExtensions are the accepted upload extensions.
var DefaultExtensions = []string{".csv", ".xlsx", ".xlsm", ".xls", ".et"}

var contentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
	".xls":  "application/vnd.ms-excel",
	".et":   "application/vnd.ms-excel",
}

// Limits bounds what an upload may be.
type Limits struct {
	MaxBytes   int64
	Extensions []string
}

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxUploadBytes
	}
	if len(l.Extensions) == 0 {
		l.Extensions = DefaultExtensions
	}
	return l
}

// Validate checks the filename extension and size of an upload.
func (l Limits) Validate(filename string, size int64) error {
	l = l.withDefaults()
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(l.Extensions, ext) {
		return fmt.Errorf("%w: unsupported file type %q, expected one of %s",
			domain.ErrInvalidInput, ext, strings.Join(l.Extensions, ", "))
	}
	if size == 0 {
		return fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}
	if size > l.MaxBytes {
		return fmt.Errorf("%w: file is %d bytes, the limit is %d", domain.ErrInvalidInput, size, l.MaxBytes)
	}
	return nil
}

func contentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
