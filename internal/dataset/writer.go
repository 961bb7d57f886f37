package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/persian-ocr/constants"
)

const (
	dictFile = "dataset_dict.json"
	infoFile = "dataset_info.json"
	dataFile = "data.jsonl"
	xlsxFile = "dataset.xlsx"
)

// Writer persists a dataset under outPath.
type Writer interface {
	Write(ctx context.Context, ds *Dataset, outPath string) error
	Format() string
}

// WriterFor returns the writer for "jsonl" or "xlsx".
func WriterFor(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "jsonl":
		return JSONLWriter{}, nil
	case "xlsx":
		return XLSXWriter{}, nil
	}
	return nil, fmt.Errorf("unknown dataset format %q", format)
}

type datasetDict struct {
	Splits []constants.Split `json:"splits"`
}

type feature struct {
	Dtype string `json:"dtype"`
	Type  string `json:"_type"`
}

type datasetInfo struct {
	Split    constants.Split    `json:"split"`
	NumRows  int                `json:"num_rows"`
	Features map[string]feature `json:"features"`
}

func infoFor(s constants.Split, rows int) datasetInfo {
	return datasetInfo{
		Split:   s,
		NumRows: rows,
		Features: map[string]feature{
			"image": {Dtype: "string", Type: "Value"},
			"text":  {Dtype: "string", Type: "Value"},
		},
	}
}

// JSONLWriter writes dataset_dict.json at the root and, per split, a directory
// holding data.jsonl (one sample per line) and dataset_info.json.
type JSONLWriter struct{}

func (JSONLWriter) Format() string { return "jsonl" }

func (JSONLWriter) Write(ctx context.Context, ds *Dataset, outPath string) error {
	if err := os.MkdirAll(outPath, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outPath, dictFile), datasetDict{Splits: constants.Splits}); err != nil {
		return err
	}
	for _, s := range constants.Splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := filepath.Join(outPath, string(s))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		rows := ds.Split(s)
		if err := writeJSONL(filepath.Join(dir, dataFile), rows); err != nil {
			return fmt.Errorf("split %s: %w", s, err)
		}
		if err := writeJSON(filepath.Join(dir, infoFile), infoFor(s, len(rows))); err != nil {
			return fmt.Errorf("split %s: %w", s, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func writeJSONL(path string, rows []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// XLSXWriter writes one workbook with a sheet per split, for review by hand.
type XLSXWriter struct{}

func (XLSXWriter) Format() string { return "xlsx" }

func (XLSXWriter) Write(ctx context.Context, ds *Dataset, outPath string) error {
	path := outPath
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		if err := os.MkdirAll(outPath, 0o755); err != nil {
			return err
		}
		path = filepath.Join(outPath, xlsxFile)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range constants.Splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		sheet := string(s)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, "A1", "image")
		_ = f.SetCellValue(sheet, "B1", "text")
		for r, sm := range ds.Split(s) {
			row := r + 2
			a, _ := excelize.CoordinatesToCellName(1, row)
			b, _ := excelize.CoordinatesToCellName(2, row)
			_ = f.SetCellValue(sheet, a, sm.Image)
			_ = f.SetCellValue(sheet, b, sm.Text)
		}
		_ = f.SetColWidth(sheet, "A", "A", 60)
		_ = f.SetColWidth(sheet, "B", "B", 100)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx save: %w", err)
	}
	return nil
}
