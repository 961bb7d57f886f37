package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core"
	"github.com/joseph-ayodele/persian-ocr/internal/core/async"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/persian-ocr/internal/export"
	repo "github.com/joseph-ayodele/persian-ocr/internal/repository"
	"github.com/joseph-ayodele/persian-ocr/internal/services/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir        = flag.String("dir", "", "directory of PDFs and images to OCR (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers    = flag.Int("workers", 0, "concurrent OCR workers (default OCR_WORKERS)")
		skipDups   = flag.Bool("skip-duplicates", true, "do not re-run OCR on files already in the database")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot files and dot directories")
		watch      = flag.Bool("watch", false, "keep running and OCR files added to --dir until interrupted")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "ocr-results.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	common.LoadDotEnv(logger)
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ":memory:"
	}
	if *workers > 0 {
		cfg.Queue.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	docsRepo := repo.NewDocumentRepository(db, logger)
	jobsRepo := repo.NewJobRepository(db, logger)

	extractor := ocr.NewExtractor(cfg.OCR.Extractor(), logger)
	processor := core.NewProcessor(logger, extractor, docsRepo, jobsRepo)

	var processed, failures atomic.Int64
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithResultHandler(func(r async.Result) {
			if r.Err != nil {
				failures.Add(1)
				return
			}
			processed.Add(1)
		}),
	)

	ingestor := ingest.NewFSIngestor(docsRepo, logger)
	svc := ingest.NewService(ingestor, queue, logger)

	start := time.Now()
	res, err := svc.IngestDirectory(ctx, ingest.DirectoryIngestRequest{
		RootPath:       *dir,
		SkipHidden:     *skipHidden,
		SkipDuplicates: *skipDups,
	})
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		queue.Shutdown(context.Background())
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"scanned", res.Statistics.Scanned,
		"matched", res.Statistics.Matched,
		"succeeded", res.Statistics.Succeeded,
		"deduplicated", res.Statistics.Deduplicated,
		"failed", res.Statistics.Failed,
		"enqueued", res.Enqueued)

	if *watch {
		watchDir(ctx, svc, ingestor, *dir, *skipHidden, *skipDups, logger)
	}

	// Wait for every queued job to record its outcome.
	queue.Shutdown(context.Background())

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.NewService(docsRepo, logger).ExportDocumentsXLSX(context.WithoutCancel(ctx))
	if err != nil {
		logger.Error("failed to export documents", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_enqueued", res.Enqueued,
		"files_processed", processed.Load(),
		"failures", failures.Load(),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", res.Statistics.Matched)
	fmt.Printf("- Files processed: %d\n", processed.Load())
	fmt.Printf("- Failures: %d\n", failures.Load())
	fmt.Printf("- Output: %s\n", *out)
}

// watchDir ingests files as they appear under dir until ctx is cancelled.
func watchDir(ctx context.Context, svc *ingest.Service, ing *ingest.FSIngestor, dir string, skipHidden, skipDups bool, logger *slog.Logger) {
	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:      []string{dir},
		SkipHidden: skipHidden,
		Debounce:   500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		return
	}
	logger.Info("watching for new files, interrupt to export", "dir", dir)
	for path := range events {
		r, err := ing.IngestPath(ctx, path)
		if err != nil {
			logger.Warn("ingest failed", "path", path, "error", err)
			continue
		}
		if _, err := svc.ProcessIngestedFile(ctx, &r, skipDups); err != nil {
			logger.Warn("enqueue failed", "path", path, "error", err)
		}
	}
}
