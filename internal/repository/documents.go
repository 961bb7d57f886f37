package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/entity"
)

// NewDocument describes a file about to be registered.
type NewDocument struct {
	SourcePath  string
	Filename    string
	FileExt     string
	FileSize    int64
	ContentHash string
	UploadedAt  time.Time
}

type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, hash string) (*entity.Document, error)
	Create(ctx context.Context, in NewDocument) (*entity.Document, error)
	// UpsertByHash returns the existing row for the hash, or creates one.
	// The bool reports whether the row already existed.
	UpsertByHash(ctx context.Context, in NewDocument) (*entity.Document, bool, error)
	// List returns every document with its most recent job, oldest upload first.
	List(ctx context.Context) ([]*entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

const documentColumns = `d.id, d.source_path, d.filename, d.file_ext, d.file_size, d.content_hash, d.uploaded_at`

func scanDocument(row interface{ Scan(...any) error }, extra ...any) (*entity.Document, error) {
	var (
		d  entity.Document
		id string
	)
	dest := append([]any{&id, &d.SourcePath, &d.Filename, &d.FileExt, &d.FileSize, &d.ContentHash, &d.UploadedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("document id %q: %w", id, err)
	}
	d.ID = parsed
	return &d, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q := r.db.rebind(`SELECT ` + documentColumns + ` FROM documents d WHERE d.id = ?`)
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

func (r *documentRepo) GetByHash(ctx context.Context, hash string) (*entity.Document, error) {
	q := r.db.rebind(`SELECT ` + documentColumns + ` FROM documents d WHERE d.content_hash = ?`)
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, hash))
	if err != nil {
		return nil, fmt.Errorf("get document by hash: %w", err)
	}
	return doc, nil
}

func (r *documentRepo) Create(ctx context.Context, in NewDocument) (*entity.Document, error) {
	doc := &entity.Document{
		ID:          uuid.New(),
		SourcePath:  in.SourcePath,
		Filename:    in.Filename,
		FileExt:     in.FileExt,
		FileSize:    in.FileSize,
		ContentHash: in.ContentHash,
		UploadedAt:  in.UploadedAt.UTC(),
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	q := r.db.rebind(`INSERT INTO documents (id, source_path, filename, file_ext, file_size, content_hash, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q,
		doc.ID.String(), doc.SourcePath, doc.Filename, doc.FileExt, doc.FileSize, doc.ContentHash, doc.UploadedAt,
	); err != nil {
		r.logger.Error("failed to create document", "source_path", in.SourcePath, "error", err)
		return nil, fmt.Errorf("%w: insert document: %v", common.ErrDatabase, err)
	}
	return doc, nil
}

func (r *documentRepo) UpsertByHash(ctx context.Context, in NewDocument) (*entity.Document, bool, error) {
	existing, err := r.GetByHash(ctx, in.ContentHash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	doc, err := r.Create(ctx, in)
	if err != nil {
		// a concurrent insert of the same hash wins the unique index
		if again, getErr := r.GetByHash(ctx, in.ContentHash); getErr == nil {
			return again, true, nil
		}
		r.logger.Error("failed to upsert document by hash", "source_path", in.SourcePath, "error", err)
		return nil, false, err
	}
	return doc, false, nil
}

func (r *documentRepo) List(ctx context.Context) ([]*entity.Document, error) {
	q := `SELECT ` + documentColumns + `,
			j.id, j.format, j.status, j.started_at, j.finished_at, j.method, j.text, j.pages, j.confidence, j.error_message
		FROM documents d
		LEFT JOIN ocr_jobs j ON j.id = (
			SELECT id FROM ocr_jobs WHERE document_id = d.id ORDER BY started_at DESC LIMIT 1
		)
		ORDER BY d.uploaded_at, d.source_path`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		var j nullableJob
		doc, err := scanDocument(rows, j.dest()...)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if doc.LatestJob, err = j.job(doc.ID); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
