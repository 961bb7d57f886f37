package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job asks a worker to OCR one document.
type Job struct {
	DocumentID  uuid.UUID
	Force       bool // re-run even if the document was deduplicated
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
