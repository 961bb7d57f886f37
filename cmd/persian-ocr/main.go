package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/persian-ocr/internal/export"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// run returns the process exit code so deferred cleanup always happens:
// 0 ok, 1 failure, 2 usage or configuration error.
func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("persian-ocr", flag.ContinueOnError)
	var (
		first      = fs.Int("first", 0, "first PDF page to OCR, 1-based (default 1)")
		last       = fs.Int("last", 0, "last PDF page to OCR (default: last page)")
		all        = fs.Bool("all", false, "OCR every page, ignoring --first/--last")
		info       = fs.Bool("info", false, "print the PDF page count and exit")
		out        = fs.String("out", "", "write the text to this file or directory instead of stdout")
		normOnly   = fs.Bool("normalize", false, "normalize text read from stdin instead of running OCR")
		trace      = fs.Bool("trace", false, "with --normalize, print the text after every stage")
		engineName = fs.String("engine", "cli", "recognizer: cli or gosseract")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() {
		printError("usage: persian-ocr [flags] <file.pdf|image>\n       persian-ocr --normalize [--trace] < text.txt\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if *normOnly {
		if err := runNormalize(stdin, stdout, *trace); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	path := fs.Arg(0)

	if *info {
		n, err := ocr.PageCount(path)
		if err != nil {
			printError("Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, n)
		return 0
	}

	common.LoadDotEnv(logger)
	cfg := common.LoadConfig().OCR.Extractor()

	opts, closeEngine, err := engineOption(*engineName, cfg)
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	defer closeEngine()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := ocr.NewExtractor(cfg, logger, opts...)

	var res ocr.ExtractionResult
	if constants.MapExtToFormat(filepath.Ext(path)) == constants.PDF && !*all {
		res, err = extractor.ExtractPDF(ctx, path, ocr.PageRange{First: *first, Last: *last})
	} else {
		res, err = extractor.Extract(ctx, path)
	}
	if err != nil {
		logger.Error("ocr failed", "path", path, "error", err)
		return 1
	}
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	logger.Info("ocr complete",
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)

	text := ocr.FormatResult(res)
	if *out == "" {
		fmt.Fprintln(stdout, text)
		return 0
	}
	written, err := export.WriteText(*out, text)
	if err != nil {
		logger.Error("failed to write output", "error", err)
		return 1
	}
	logger.Info("text saved", "path", written)
	return 0
}

func runNormalize(in io.Reader, out io.Writer, trace bool) error {
	b, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	text := string(b)
	if !trace {
		_, err = io.WriteString(out, normalize.Normalize(text))
		return err
	}
	for _, st := range normalize.Trace(text) {
		if _, err := fmt.Fprintf(out, "== %s ==\n%s\n", st.Stage, st.Text); err != nil {
			return err
		}
	}
	return nil
}
