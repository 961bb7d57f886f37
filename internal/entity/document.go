package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a source file registered for OCR, deduplicated by content hash.
type Document struct {
	ID          uuid.UUID `json:"id"`
	SourcePath  string    `json:"source_path"`
	ContentHash string    `json:"content_hash"` // hex sha256
	Filename    string    `json:"filename"`
	FileExt     string    `json:"file_ext"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`

	LatestJob *OCRJob `json:"latest_job,omitempty"`
}
