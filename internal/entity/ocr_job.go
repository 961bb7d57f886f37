package entity

import (
	"time"

	"github.com/google/uuid"
)

// OCRJob is one extraction attempt for a document.
type OCRJob struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Method       string     `json:"method,omitempty"`
	Text         string     `json:"text,omitempty"`
	Pages        int        `json:"pages"`
	Confidence   float32    `json:"confidence"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// JobOutcome is what a finished job records.
type JobOutcome struct {
	Status       string
	Method       string
	Text         string
	Pages        int
	Confidence   float32
	ErrorMessage string
}
