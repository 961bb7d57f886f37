package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/persian-ocr/constants"
)

// PageRange selects PDF pages, 1-based and inclusive. Last <= 0 means the last page.
type PageRange struct {
	First int
	Last  int
}

// AllPages selects every page of a document.
var AllPages = PageRange{First: 1}

// PageCount reads the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// clamp fits r into a document of total pages.
func (r PageRange) clamp(total int) (first, last int, err error) {
	first = r.First
	if first < 1 {
		first = 1
	}
	last = r.Last
	if last <= 0 || last > total {
		last = total
	}
	if first > total {
		return 0, 0, fmt.Errorf("%w: start page %d, document has %d pages", ErrStartPageOutOfRange, first, total)
	}
	if first > last {
		return 0, 0, fmt.Errorf("%w: %d > %d", ErrInvalidPageRange, first, last)
	}
	return first, last, nil
}

// ExtractPDF rasterizes the selected pages and OCRs each one.
func (e *Extractor) ExtractPDF(ctx context.Context, path string, pr PageRange) (ExtractionResult, error) {
	start := time.Now()
	res := ExtractionResult{SourceType: constants.PDF, Method: "pdf-ocr", Language: e.cfg.TesseractLang}

	total, err := e.pageCount(path)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrUnreadablePDF, err)
	}
	first, last, err := pr.clamp(total)
	if err != nil {
		return res, err
	}
	if e.cfg.MaxPages > 0 && last-first+1 > e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("page range capped at %d pages", e.cfg.MaxPages))
		last = first + e.cfg.MaxPages - 1
	}
	res.FirstPage, res.LastPage, res.TotalPages = first, last, total

	tmpDir, err := os.MkdirTemp("", "pocr-pp-*")
	if err != nil {
		return res, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	pages, warns, err := e.rasterize(ctx, path, tmpDir, first, last)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}

	var b strings.Builder
	var confSum float32
	for _, pg := range pages {
		txt, w, err := e.recognizePage(ctx, pg.path)
		res.Warnings = append(res.Warnings, w...)
		if err != nil {
			e.logger.Warn("page ocr failed", "path", path, "page", pg.number, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", pg.number, err))
			continue
		}
		res.PageTexts = append(res.PageTexts, PageText{Number: pg.number, Text: txt})
		confSum += scriptConfidence(txt)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}

	res.Text = b.String()
	res.Pages = len(pages)
	if n := len(res.PageTexts); n > 0 {
		res.Confidence = confSum / float32(n)
	}
	res.Duration = time.Since(start)
	e.logger.Debug("pdf ocr done", "path", path, "first", first, "last", last, "total", total, "pages_ok", len(res.PageTexts))
	return res, nil
}

type renderedPage struct {
	number int
	path   string
}

func (e *Extractor) rasterize(ctx context.Context, path, dir string, first, last int) ([]renderedPage, []string, error) {
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -f <first> -l <last> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		"-png", path, prefix)
	if err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// pdftoppm pads page numbers to the width of the page count: page-01.png ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, ErrNoPagesRendered
	}
	pages := make([]renderedPage, 0, len(matches))
	for i, m := range matches {
		n, ok := pageNumber(m)
		if !ok {
			n = first + i
		}
		pages = append(pages, renderedPage{number: n, path: m})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].number < pages[j].number })
	return pages, nil, nil
}

func pageNumber(file string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	i := strings.LastIndexByte(base, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[i+1:])
	return n, err == nil
}
