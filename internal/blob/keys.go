// Package blob stores raw uploads and columnar files in a bbolt file.
package blob

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	uploadsPrefix  = "uploads/"
	columnarPrefix = "parquet/"
	keyTimeLayout  = "20060102_150405"
)

// UploadKey addresses a raw upload: uploads/<id>_<YYYYmmdd_HHMMSS>_<file>.
func UploadKey(id uuid.UUID, filename string, at time.Time) string {
	name := strings.ReplaceAll(path.Base(strings.ReplaceAll(filename, "\\", "/")), " ", "_")
	if name == "." || name == "/" {
		name = "upload"
	}
	return uploadsPrefix + id.String() + "_" + at.UTC().Format(keyTimeLayout) + "_" + name
}

// ColumnarKey addresses the parquet rendition of a dataset.
func ColumnarKey(id uuid.UUID) string {
	return columnarPrefix + id.String() + ".parquet"
}
