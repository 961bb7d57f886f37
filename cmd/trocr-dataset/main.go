package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/persian-ocr/internal/dataset"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		data      = flag.String("data", "./data", "directory holding fulltext/*.txt and images/*.png")
		out       = flag.String("out", "./trocr_dataset", "output dataset directory")
		format    = flag.String("format", "jsonl", "output format: jsonl or xlsx")
		normalize = flag.Bool("normalize", false, "run the Persian normalizer over every transcript")
		skipCheck = flag.Bool("no-inspect", false, "skip reloading and previewing the written dataset")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	w, err := dataset.WriterFor(*format)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := dataset.NewBuilder(logger, dataset.WithWriter(w), dataset.WithNormalization(*normalize))
	ds, stats, err := b.Create(ctx, *data, *out)
	if err != nil {
		logger.Error("dataset creation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset created",
		"text_files", stats.TextFiles,
		"image_files", stats.ImageFiles,
		"kept", stats.Kept,
		"skipped", stats.Skipped)
	fmt.Println(ds)

	if *skipCheck || w.Format() != "jsonl" {
		return
	}
	loaded, err := dataset.Load(*out)
	if err != nil {
		logger.Error("reload failed", "error", err)
		os.Exit(1)
	}
	preview, err := dataset.Inspect(loaded)
	if errors.Is(err, dataset.ErrEmptySplit) {
		logger.Warn("nothing to preview", "error", err)
		return
	}
	if err != nil {
		logger.Error("inspect failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(preview)
}
