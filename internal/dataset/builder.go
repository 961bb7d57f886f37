package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
)

const (
	textDir  = "fulltext"
	imageDir = "images"

	progressEvery = 100
)

// Stats reports what Create found and kept.
type Stats struct {
	TextFiles  int
	ImageFiles int
	Paired     int
	Kept       int
	Skipped    int
}

// Builder collects samples from a data directory and hands them to a Writer.
type Builder struct {
	writer    Writer
	normalize bool
	logger    *slog.Logger
}

type BuilderOption func(*Builder)

// WithWriter selects the output format. The default is JSONL.
func WithWriter(w Writer) BuilderOption {
	return func(b *Builder) {
		if w != nil {
			b.writer = w
		}
	}
}

// WithNormalization runs every transcript through the text normalizer.
func WithNormalization(on bool) BuilderOption {
	return func(b *Builder) { b.normalize = on }
}

func NewBuilder(logger *slog.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{writer: JSONLWriter{}, logger: logger}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Collect pairs transcripts with images without writing anything.
func (b *Builder) Collect(ctx context.Context, dataPath string) ([]Sample, Stats, error) {
	var st Stats
	texts, err := sortedGlob(filepath.Join(dataPath, textDir, "*.txt"))
	if err != nil {
		return nil, st, err
	}
	images, err := sortedGlob(filepath.Join(dataPath, imageDir, "*.png"))
	if err != nil {
		return nil, st, err
	}
	st.TextFiles, st.ImageFiles = len(texts), len(images)
	st.Paired = min(len(texts), len(images))
	b.logger.Info("dataset sources found", "text_files", st.TextFiles, "image_files", st.ImageFiles)

	samples := make([]Sample, 0, st.Paired)
	for i := 0; i < st.Paired; i++ {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		s, err := b.readSample(texts[i], images[i])
		if err != nil {
			st.Skipped++
			b.logger.Warn("sample skipped", "index", i, "text", texts[i], "image", images[i], "error", err)
			continue
		}
		samples = append(samples, s)
		if (i+1)%progressEvery == 0 {
			b.logger.Info("dataset progress", "processed", i+1)
		}
	}
	st.Kept = len(samples)
	b.logger.Info("samples ready", "count", st.Kept, "skipped", st.Skipped)
	return samples, st, nil
}

// Create collects samples, splits them and writes the dataset to outPath.
func (b *Builder) Create(ctx context.Context, dataPath, outPath string) (*Dataset, Stats, error) {
	samples, st, err := b.Collect(ctx, dataPath)
	if err != nil {
		return nil, st, err
	}
	ds := SplitSamples(samples)
	for _, s := range constants.Splits {
		b.logger.Info("dataset split", "split", s, "rows", len(ds.Split(s)))
	}
	if err := b.writer.Write(ctx, ds, outPath); err != nil {
		return nil, st, fmt.Errorf("write dataset: %w", err)
	}
	b.logger.Info("dataset saved", "path", outPath, "format", b.writer.Format())
	return ds, st, nil
}

func (b *Builder) readSample(textPath, imagePath string) (Sample, error) {
	raw, err := os.ReadFile(textPath)
	if err != nil {
		return Sample{}, fmt.Errorf("read transcript: %w", err)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return Sample{}, fmt.Errorf("image missing: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if b.normalize {
		text = normalize.Normalize(text)
	}
	return Sample{Image: imagePath, Text: text}, nil
}

func sortedGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}
