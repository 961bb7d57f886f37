package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// stubRunner fakes tesseract, pdftoppm and the HEIC converters.
type stubRunner struct {
	mu        sync.Mutex
	calls     []call
	texts     []string // tesseract stdout, consumed in order
	failPages map[int]bool
	ocrCalls  int
	tsv       string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{name: name, args: append([]string(nil), args...)})

	switch name {
	case "tesseract":
		if args[len(args)-1] == "tsv" {
			return []byte(s.tsv), nil, nil
		}
		s.ocrCalls++
		if s.failPages[s.ocrCalls] {
			return nil, []byte("read error"), errors.New("exit status 1")
		}
		if len(s.texts) == 0 {
			return []byte("سلام"), nil, nil
		}
		t := s.texts[0]
		s.texts = s.texts[1:]
		return []byte(t), nil, nil
	case "pdftoppm":
		first, _ := strconv.Atoi(flagValue(args, "-f"))
		last, _ := strconv.Atoi(flagValue(args, "-l"))
		prefix := args[len(args)-1]
		for n := first; n <= last; n++ {
			if err := writePNG(fmt.Sprintf("%s-%02d.png", prefix, n)); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "magick":
		return nil, nil, writePNG(args[len(args)-1])
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func (s *stubRunner) callsTo(name string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func flagValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func writePNG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(r *stubRunner, pages int, mutate func(*Config)) *Extractor {
	cfg := DefaultConfig()
	cfg.ArtifactCacheDir = ""
	if mutate != nil {
		mutate(&cfg)
	}
	return NewExtractor(cfg, discardLogger(),
		WithRunner(r),
		WithPageCounter(func(string) (int, error) { return pages, nil }),
	)
}

func TestExtractImage_GrayscaleArgsAndNormalize(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, writePNG(img))

	r := &stubRunner{texts: []string{"وشد میکنند\n-----\nكتاب"}}
	e := newTestExtractor(r, 0, nil)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "شد می\u200cکنند کتاب", res.Text)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Greater(t, res.Confidence, float32(0))

	calls := r.callsTo("tesseract")
	require.Len(t, calls, 1)
	args := calls[0].args
	assert.Equal(t, "page-gray.png", filepath.Base(args[0]))
	assert.Equal(t, []string{"stdout", "-l", "fas+eng", "--oem", "3", "--psm", "6", "-c", "preserve_interword_spaces=1"}, args[1:])
}

func TestExtractImage_UndecodableFallsBackToOriginal(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(img, []byte("not a png"), 0o644))

	r := &stubRunner{}
	res, err := newTestExtractor(r, 0, nil).ExtractImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "سلام", res.Text)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, img, r.callsTo("tesseract")[0].args[0])
}

func TestExtractImage_TSVConfidence(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "scan.png")
	require.NoError(t, writePNG(img))

	r := &stubRunner{tsv: "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tسلام\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tدنیا\n" +
		"4\t1\t1\t1\t1\t0\t0\t0\t10\t10\t-1\t\n"}
	e := newTestExtractor(r, 0, func(c *Config) { c.EnableTSVConfidence = true })

	res, err := e.ExtractImage(context.Background(), img)
	require.NoError(t, err)
	// 0.7 * 0.8 + 0.3 * heuristic
	assert.InDelta(t, 0.7*0.8+0.3*scriptConfidence(res.Text), res.Confidence, 1e-6)
}

func TestExtractPDF_ClampsRangeAndReports(t *testing.T) {
	r := &stubRunner{texts: []string{"اول.", "دوم؟", "سوم"}}
	e := newTestExtractor(r, 3, nil)

	res, err := e.ExtractPDF(context.Background(), "book.pdf", PageRange{First: 0, Last: 99})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FirstPage)
	assert.Equal(t, 3, res.LastPage)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.PageTexts, 3)

	pp := r.callsTo("pdftoppm")
	require.Len(t, pp, 1)
	assert.Equal(t, []string{"-r", "300", "-f", "1", "-l", "3", "-png", "book.pdf"}, pp[0].args[:8])

	want := "📊 استخراج صفحات 1 تا 3 از 3 صفحه:\n\n" +
		"--- صفحه 1 ---\nاول.\n\n\n" +
		"--- صفحه 2 ---\nدوم؟\n\n\n" +
		"--- صفحه 3 ---\nسوم"
	assert.Equal(t, want, FormatPDFReport(res))
}

func TestExtractPDF_PartialRange(t *testing.T) {
	r := &stubRunner{}
	res, err := newTestExtractor(r, 10, nil).ExtractPDF(context.Background(), "book.pdf", PageRange{First: 4, Last: 5})
	require.NoError(t, err)
	require.Len(t, res.PageTexts, 2)
	assert.Equal(t, 4, res.PageTexts[0].Number)
	assert.Equal(t, 5, res.PageTexts[1].Number)
}

func TestExtractPDF_RangeErrors(t *testing.T) {
	e := newTestExtractor(&stubRunner{}, 3, nil)

	_, err := e.ExtractPDF(context.Background(), "book.pdf", PageRange{First: 4})
	assert.ErrorIs(t, err, ErrStartPageOutOfRange)

	_, err = e.ExtractPDF(context.Background(), "book.pdf", PageRange{First: 3, Last: 2})
	assert.ErrorIs(t, err, ErrInvalidPageRange)
}

func TestExtractPDF_UnreadablePDF(t *testing.T) {
	r := &stubRunner{}
	e := NewExtractor(DefaultConfig(), discardLogger(),
		WithRunner(r),
		WithPageCounter(func(string) (int, error) { return 0, errors.New("pdfcpu: xref table corrupt") }),
	)

	_, err := e.ExtractPDF(context.Background(), "broken.pdf", PageRange{})
	require.ErrorIs(t, err, ErrUnreadablePDF)
	assert.Contains(t, err.Error(), "xref table corrupt")
	assert.Empty(t, r.callsTo("pdftoppm"))
}

func TestExtractPDF_MaxPagesCap(t *testing.T) {
	r := &stubRunner{}
	e := newTestExtractor(r, 20, func(c *Config) { c.MaxPages = 2 })

	res, err := e.ExtractPDF(context.Background(), "book.pdf", AllPages)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LastPage)
	assert.Len(t, res.PageTexts, 2)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractPDF_FailedPageIsSkipped(t *testing.T) {
	r := &stubRunner{failPages: map[int]bool{2: true}}
	res, err := newTestExtractor(r, 3, nil).ExtractPDF(context.Background(), "book.pdf", AllPages)
	require.NoError(t, err)
	require.Len(t, res.PageTexts, 2)
	assert.Equal(t, []int{1, 3}, []int{res.PageTexts[0].Number, res.PageTexts[1].Number})
	assert.Equal(t, 3, res.Pages)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	_, err := newTestExtractor(&stubRunner{}, 0, nil).Extract(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_HEICConvertsAndCaches(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.heic")
	require.NoError(t, os.WriteFile(src, []byte("heic"), 0o644))

	cache := filepath.Join(dir, "cache")
	r := &stubRunner{}
	e := newTestExtractor(r, 0, func(c *Config) {
		c.HeicConverter = "magick"
		c.ArtifactCacheDir = cache
	})
	ctx := WithContentHash(context.Background(), "abc123")

	_, err := e.Extract(ctx, src)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cache, "abc123.png"))

	_, err = e.Extract(ctx, src)
	require.NoError(t, err)
	assert.Len(t, r.callsTo("magick"), 1)
}

func TestExtract_HEICWithoutConverter(t *testing.T) {
	_, err := newTestExtractor(&stubRunner{}, 0, nil).Extract(context.Background(), "photo.heic")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestScriptConfidence(t *testing.T) {
	assert.Equal(t, float32(0), scriptConfidence(""))
	assert.Greater(t, scriptConfidence("سلام دنیا."), scriptConfidence("hello world"))
	assert.LessOrEqual(t, blendConfidence(1, 1), float32(1))
}

func TestPageNumber(t *testing.T) {
	n, ok := pageNumber("/tmp/x/page-007.png")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = pageNumber("/tmp/x/page.png")
	assert.False(t, ok)
}

func TestCleanRaw(t *testing.T) {
	assert.Equal(t, "a\n\nb", cleanRaw("a\r\n-----\r\nb"))
	assert.Equal(t, "a\n\nb", cleanRaw("a\n ==~== \nb"))
	assert.Equal(t, "a\n____\nb", cleanRaw("a\r\n____\r\nb"))
}

func TestTesseractArgs(t *testing.T) {
	tests := []struct {
		name     string
		psm, oem int
		want     []string
	}{
		{"defaults", 6, 3, []string{"-l", "fas+eng", "--oem", "3", "--psm", "6"}},
		{"zero psm is passed", 0, 0, []string{"-l", "fas+eng", "--oem", "0", "--psm", "0"}},
		{"negative omits", -1, -1, []string{"-l", "fas+eng"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{TesseractLang: "fas+eng", PSM: tt.psm, OEM: tt.oem}
			assert.Equal(t, tt.want, tesseractArgs(cfg))
		})
	}
}
