package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core/async"
)

// Service ingests files and hands them to the OCR queue.
type Service struct {
	ingestor Ingestor
	queue    async.Queue
	logger   *slog.Logger
}

func NewService(ing Ingestor, q async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ingestor: ing, queue: q, logger: logger}
}

type DirectoryIngestRequest struct {
	RootPath       string
	SkipHidden     bool
	SkipDuplicates bool
}

type DirectoryIngestResult struct {
	Statistics DirStats
	Results    []IngestionResult
	Enqueued   int
}

// IngestDirectory registers every supported file under RootPath and enqueues
// each one for OCR. Duplicates are skipped when SkipDuplicates is set.
func (s *Service) IngestDirectory(ctx context.Context, req DirectoryIngestRequest) (*DirectoryIngestResult, error) {
	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		return nil, common.NewAppError(codes.InvalidArgument, "root_path is required", common.ErrInvalidInput)
	}

	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", req.SkipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, root, req.SkipHidden)
	if err != nil {
		return nil, common.NewAppError(common.CodeOf(err), "ingest directory", err)
	}

	out := &DirectoryIngestResult{Statistics: stats, Results: results}
	for i := range results {
		queued, err := s.ProcessIngestedFile(ctx, &results[i], req.SkipDuplicates)
		if err != nil {
			return out, err
		}
		if queued {
			out.Enqueued++
		}
	}
	return out, nil
}

// ProcessIngestedFile enqueues one ingested file. It reports whether a job was queued.
func (s *Service) ProcessIngestedFile(ctx context.Context, result *IngestionResult, skipDuplicates bool) (bool, error) {
	if result.Err != "" || result.DocumentID == "" {
		return false, nil
	}
	docID, err := uuid.Parse(result.DocumentID)
	if err != nil {
		s.logger.Error("invalid document_id: cannot enqueue", "document_id", result.DocumentID, "error", err)
		return false, common.NewAppError(codes.InvalidArgument, "invalid document_id", err)
	}
	if result.Deduplicated && skipDuplicates {
		s.logger.Info("skipping processing (duplicate)", "document_id", result.DocumentID, "path", result.SourcePath)
		return false, nil
	}
	if err := s.queue.Enqueue(ctx, async.Job{
		DocumentID:  docID,
		Force:       result.Deduplicated,
		SubmittedAt: time.Now(),
	}); err != nil {
		s.logger.Error("enqueue failed for document", "document_id", result.DocumentID, "err", err)
		return false, common.NewAppError(codes.Unavailable, "enqueue failed", err)
	}
	return true, nil
}
