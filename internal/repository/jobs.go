package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/entity"
)

type JobRepository interface {
	// StartJob records a RUNNING job for the document.
	StartJob(ctx context.Context, documentID uuid.UUID, format string) (*entity.OCRJob, error)
	// FinishJob stores the outcome and the finish time.
	FinishJob(ctx context.Context, jobID uuid.UUID, out entity.JobOutcome) error
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.OCRJob, error)
}

type jobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewJobRepository(db *DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

func (r *jobRepo) StartJob(ctx context.Context, documentID uuid.UUID, format string) (*entity.OCRJob, error) {
	job := &entity.OCRJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Format:     format,
		Status:     string(constants.JobStatusRunning),
		StartedAt:  time.Now().UTC(),
	}
	q := r.db.rebind(`INSERT INTO ocr_jobs (id, document_id, format, status, started_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, job.ID.String(), documentID.String(), format, job.Status, job.StartedAt); err != nil {
		r.log.Error("ocr_job start failed", "document_id", documentID, "err", err)
		return nil, fmt.Errorf("%w: start job: %v", common.ErrDatabase, err)
	}
	r.log.Info("ocr_job started", "job_id", job.ID, "document_id", documentID, "format", format)
	return job, nil
}

func (r *jobRepo) FinishJob(ctx context.Context, jobID uuid.UUID, out entity.JobOutcome) error {
	q := r.db.rebind(`UPDATE ocr_jobs
		SET status = ?, finished_at = ?, method = ?, text = ?, pages = ?, confidence = ?, error_message = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		out.Status, time.Now().UTC(), nullString(out.Method), nullString(out.Text),
		out.Pages, float64(out.Confidence), nullString(out.ErrorMessage), jobID.String())
	if err != nil {
		r.log.Error("ocr_job finish failed", "job_id", jobID, "status", out.Status, "err", err)
		return fmt.Errorf("%w: finish job: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	if out.Status == string(constants.JobStatusFailed) {
		r.log.Warn("ocr_job finished (FAILED)", "job_id", jobID, "error", out.ErrorMessage)
	} else {
		r.log.Info("ocr_job finished", "job_id", jobID, "status", out.Status, "method", out.Method)
	}
	return nil
}

func (r *jobRepo) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.OCRJob, error) {
	var j nullableJob
	q := r.db.rebind(`SELECT id, format, status, started_at, finished_at, method, text, pages, confidence, error_message
		FROM ocr_jobs WHERE document_id = ? ORDER BY started_at DESC LIMIT 1`)
	if err := r.db.QueryRowContext(ctx, q, documentID.String()).Scan(j.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("latest job for %s: %w", documentID, common.ErrNotFound)
		}
		return nil, err
	}
	return j.job(documentID)
}

// nullableJob scans the job columns of a LEFT JOIN, where every column may be NULL.
type nullableJob struct {
	id, format, status         sql.NullString
	startedAt, finishedAt      sql.NullTime
	method, text, errorMessage sql.NullString
	pages                      sql.NullInt64
	confidence                 sql.NullFloat64
}

func (j *nullableJob) dest() []any {
	return []any{&j.id, &j.format, &j.status, &j.startedAt, &j.finishedAt, &j.method, &j.text, &j.pages, &j.confidence, &j.errorMessage}
}

// job returns nil when the row had no job.
func (j *nullableJob) job(documentID uuid.UUID) (*entity.OCRJob, error) {
	if !j.id.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(j.id.String)
	if err != nil {
		return nil, fmt.Errorf("job id %q: %w", j.id.String, err)
	}
	out := &entity.OCRJob{
		ID:           id,
		DocumentID:   documentID,
		Format:       j.format.String,
		Status:       j.status.String,
		StartedAt:    j.startedAt.Time,
		Method:       j.method.String,
		Text:         j.text.String,
		Pages:        int(j.pages.Int64),
		Confidence:   float32(j.confidence.Float64),
		ErrorMessage: j.errorMessage.String,
	}
	if j.finishedAt.Valid {
		t := j.finishedAt.Time
		out.FinishedAt = &t
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
