package constants

// JobStatus is the canonical status for rows in ocr_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusOCROK   JobStatus = "OCR_OK"
	JobStatusFailed  JobStatus = "FAILED"
)

// ImageConfidenceThreshold flags image results below it for review.
const ImageConfidenceThreshold = 0.6
