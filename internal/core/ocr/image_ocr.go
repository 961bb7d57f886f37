package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/persian-ocr/constants"
)

// tesseractEngine runs the tesseract CLI and reads the text from stdout.
type tesseractEngine struct {
	cfg    Config
	runner Runner
}

func (t *tesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang> --oem 3 --psm 6 -c preserve_interword_spaces=1
	args := append([]string{imagePath, "stdout"}, tesseractArgs(t.cfg)...)
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}

func tesseractArgs(cfg Config) []string {
	args := []string{"-l", cfg.TesseractLang}
	if cfg.OEM >= 0 {
		args = append(args, "--oem", strconv.Itoa(cfg.OEM))
	}
	if cfg.PSM >= 0 {
		args = append(args, "--psm", strconv.Itoa(cfg.PSM))
	}
	if cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", cfg.TessdataDir)
	}
	if cfg.PreserveInterwordSpaces {
		args = append(args, "-c", "preserve_interword_spaces=1")
	}
	return args
}

// ExtractImage OCRs a single decodable image and normalizes the text.
func (e *Extractor) ExtractImage(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	txt, warn, err := e.recognizePage(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, err
	}

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Duration:   time.Since(start),
		Warnings:   warn,
		Confidence: blendConfidence(ocrConf, scriptConfidence(txt)),
	}, nil
}

// recognizePage prepares the image, runs the engine and cleans the output.
func (e *Extractor) recognizePage(ctx context.Context, path string) (string, []string, error) {
	var warn []string
	input := path
	if e.cfg.Grayscale {
		dir, err := os.MkdirTemp("", "pocr-gray-*")
		if err != nil {
			return "", nil, err
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
			}
		}()
		gray, err := grayscalePNG(path, dir)
		if err != nil {
			// tesseract decodes more formats than we do; let it try the original
			warn = append(warn, fmt.Sprintf("grayscale skipped: %v", err))
		} else {
			input = gray
		}
	}

	raw, err := e.engine.Recognize(ctx, input)
	if err != nil {
		return "", warn, err
	}
	return e.normalize(cleanRaw(raw)), warn, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append([]string{path, "stdout"}, tesseractArgs(e.cfg)...)
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column of word rows, skipping the header.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
