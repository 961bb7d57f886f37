package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/persian-ocr/internal/repository"
)

// TextFileName is the download name for extracted text.
const TextFileName = "extracted_text.txt"

const previewRunes = 140

// Service produces XLSX bytes for document exports.
type Service struct {
	docsRepo repository.DocumentRepository
	logger   *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docsRepo: docs, logger: logger}
}

// ExportDocumentsXLSX returns a workbook with one row per document and its latest OCR job.
func (s *Service) ExportDocumentsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	docs, err := s.docsRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Documents"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"File Path",
		"Method",
		"Pages",
		"Confidence",
		"Status",
		"Text Preview",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.SourcePath)
		if j := d.LatestJob; j != nil {
			write(2, j.Method)
			write(3, j.Pages)
			write(4, fmt.Sprintf("%.2f", j.Confidence))
			write(5, j.Status)
			if j.ErrorMessage != "" {
				write(6, truncate(j.ErrorMessage, previewRunes))
			} else {
				write(6, truncate(j.Text, previewRunes))
			}
		} else {
			write(5, "NOT_PROCESSED")
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 60) // path
	_ = f.SetColWidth(sheet, "B", "B", 12) // method
	_ = f.SetColWidth(sheet, "C", "D", 12) // pages, confidence
	_ = f.SetColWidth(sheet, "E", "E", 14) // status
	_ = f.SetColWidth(sheet, "F", "F", 80) // text

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteText saves extracted text as UTF-8. A directory path gets TextFileName appended.
func WriteText(path, text string) (string, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, TextFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write text: %w", err)
	}
	return path, nil
}

// truncate cuts s to n runes, ending with an ellipsis when shortened.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
