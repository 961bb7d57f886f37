package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/persian-ocr/internal/entity"
	"github.com/joseph-ayodele/persian-ocr/internal/repository"
)

// Extractor is the part of *ocr.Extractor the processor needs.
type Extractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// Processor runs OCR for a registered document and records the job.
type Processor struct {
	logger    *slog.Logger
	extractor Extractor
	docsRepo  repository.DocumentRepository
	jobsRepo  repository.JobRepository
}

func NewProcessor(
	logger *slog.Logger,
	extractor Extractor,
	docsRepo repository.DocumentRepository,
	jobsRepo repository.JobRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		docsRepo:  docsRepo,
		jobsRepo:  jobsRepo,
	}
}

// ProcessFile starts a RUNNING job for the document, extracts and normalizes
// its text, and finishes the job as OCR_OK or FAILED. It returns the job ID.
func (p *Processor) ProcessFile(ctx context.Context, docID uuid.UUID) (uuid.UUID, ocr.ExtractionResult, error) {
	ctx = common.WithDocumentID(ctx, docID.String())
	log := common.LoggerFromContext(ctx, p.logger)

	doc, err := p.docsRepo.GetByID(ctx, docID)
	if err != nil {
		return uuid.Nil, ocr.ExtractionResult{}, fmt.Errorf("get document: %w", err)
	}
	ctx = ocr.WithContentHash(ctx, doc.ContentHash)

	format := constants.MapExtToFormat(doc.FileExt)
	if format == "" {
		return uuid.Nil, ocr.ExtractionResult{}, fmt.Errorf("%w: %s", ocr.ErrUnsupportedFormat, doc.FileExt)
	}

	job, err := p.jobsRepo.StartJob(ctx, doc.ID, format)
	if err != nil {
		return uuid.Nil, ocr.ExtractionResult{}, err
	}

	res, err := p.extractor.Extract(ctx, doc.SourcePath)
	if err != nil {
		log.Error("processor.ocr.failed", "job_id", job.ID, "path", doc.SourcePath, "err", err)
		// the caller's ctx may be what failed; record the outcome regardless
		if ferr := p.jobsRepo.FinishJob(context.WithoutCancel(ctx), job.ID, entity.JobOutcome{
			Status:       string(constants.JobStatusFailed),
			ErrorMessage: err.Error(),
		}); ferr != nil {
			log.Error("failed to record job failure", "job_id", job.ID, "err", ferr)
		}
		return job.ID, res, err
	}

	if format == constants.IMAGE && res.Confidence > 0 && res.Confidence < constants.ImageConfidenceThreshold {
		log.Warn("image ocr confidence low; needs review", "job_id", job.ID, "conf", res.Confidence)
	}

	if err := p.jobsRepo.FinishJob(ctx, job.ID, entity.JobOutcome{
		Status:     string(constants.JobStatusOCROK),
		Method:     res.Method,
		Text:       res.Text,
		Pages:      res.Pages,
		Confidence: res.Confidence,
	}); err != nil {
		return job.ID, res, err
	}

	log.Debug("processor ocr success",
		"job_id", job.ID,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
	)
	return job.ID, res, nil
}
