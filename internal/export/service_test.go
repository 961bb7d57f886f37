package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/persian-ocr/internal/entity"
	"github.com/joseph-ayodele/persian-ocr/internal/repository"
)

func TestExportDocumentsXLSX(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	defer db.Close(logger)

	docs := repository.NewDocumentRepository(db, logger)
	jobs := repository.NewJobRepository(db, logger)

	a, _, err := docs.UpsertByHash(ctx, repository.NewDocument{SourcePath: "/in/a.pdf", Filename: "a.pdf", FileExt: "pdf", ContentHash: "1"})
	require.NoError(t, err)
	_, _, err = docs.UpsertByHash(ctx, repository.NewDocument{SourcePath: "/in/b.png", Filename: "b.png", FileExt: "png", ContentHash: "2"})
	require.NoError(t, err)

	job, err := jobs.StartJob(ctx, a.ID, "PDF")
	require.NoError(t, err)
	long := strings.Repeat("س", 200)
	require.NoError(t, jobs.FinishJob(ctx, job.ID, entity.JobOutcome{Status: "OCR_OK", Method: "pdf-ocr", Text: long, Pages: 4, Confidence: 0.7}))

	b, err := NewService(docs, logger).ExportDocumentsXLSX(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Documents")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "File Path", rows[0][0])
	assert.Equal(t, []string{"/in/a.pdf", "pdf-ocr", "4", "0.70", "OCR_OK"}, rows[1][:5])
	assert.Equal(t, 140, len([]rune(rows[1][5])))
	assert.True(t, strings.HasSuffix(rows[1][5], "…"))
	assert.Equal(t, "NOT_PROCESSED", rows[2][4])
}

func TestWriteText(t *testing.T) {
	dir := t.TempDir()
	p, err := WriteText(dir, "سلام\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, TextFileName), p)
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "سلام\n", string(got))

	p, err = WriteText(filepath.Join(dir, "out", "page.txt"), "x")
	require.NoError(t, err)
	assert.FileExists(t, p)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "آ", truncate("آب", 1))
}
