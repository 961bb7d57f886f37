package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrStartPageOutOfRange = errors.New("start page is beyond the last page")
	ErrInvalidPageRange    = errors.New("start page is after end page")
	ErrNoPagesRendered     = errors.New("no pages rendered")
	ErrUnreadablePDF       = errors.New("unreadable PDF")
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "fas+eng"
	OEM           int    // default 3 (LSTM + legacy as available); negative omits the flag
	PSM           int    // default 6, a uniform block of text; negative omits the flag
	DPI           int    // rasterization DPI for PDFs, default 300
	MaxPages      int    // 0 = no limit

	PreserveInterwordSpaces bool
	Grayscale               bool // convert images to 8-bit gray before OCR
	EnableTSVConfidence     bool

	TessdataDir      string
	HeicConverter    string
	ArtifactCacheDir string
}

// DefaultConfig returns the settings the Persian pipeline is tuned for.
func DefaultConfig() Config {
	return Config{
		TesseractLang:           "fas+eng",
		OEM:                     3,
		PSM:                     6,
		DPI:                     300,
		PreserveInterwordSpaces: true,
		Grayscale:               true,
	}
}

// PageText is the normalized text of one PDF page.
type PageText struct {
	Number int
	Text   string
}

type ExtractionResult struct {
	Text       string
	Pages      int
	PageTexts  []PageText // PDF only
	FirstPage  int        // PDF only
	LastPage   int        // PDF only
	TotalPages int        // PDF only
	SourceType string     // constants.PDF | constants.IMAGE
	Method     string     // "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Engine turns one image file into raw text.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

type Extractor struct {
	cfg       Config
	runner    Runner
	engine    Engine
	normalize func(string) string
	pageCount func(path string) (int, error)
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the process runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithEngine replaces the tesseract CLI engine.
func WithEngine(en Engine) Option {
	return func(e *Extractor) {
		if en != nil {
			e.engine = en
		}
	}
}

// WithNormalizer replaces the page text post-processor.
func WithNormalizer(fn func(string) string) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.normalize = fn
		}
	}
}

// WithPageCounter replaces the PDF page counter.
func WithPageCounter(fn func(path string) (int, error)) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.pageCount = fn
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "fas+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = "./tmp"
	}
	e := &Extractor{
		cfg:       cfg,
		runner:    execRunner{logger: logger},
		normalize: normalize.Normalize,
		pageCount: PageCount,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	if e.engine == nil {
		e.engine = &tesseractEngine{cfg: e.cfg, runner: e.runner}
	}
	return e
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Extract picks a strategy based on file extension. PDFs are read in full.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.ExtractPDF(ctx, path, AllPages)
	case constants.IMAGE:
		var warns []string
		if constants.IsHEICExt(ext) {
			hashHex, _ := contentHashFromCtx(ctx)
			out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
			warns = append(warns, w...)
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", err)
				return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
			}
			path = out
		}
		res, err := e.ExtractImage(ctx, path)
		res.Duration = time.Since(start)
		res.Warnings = append(res.Warnings, warns...)
		return res, err
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
