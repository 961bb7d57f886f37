package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

type stubExtractor struct {
	res      ocr.ExtractionResult
	err      error
	gotRange ocr.PageRange
	gotPath  string
	calls    int
}

func (s *stubExtractor) Extract(_ context.Context, path string) (ocr.ExtractionResult, error) {
	s.calls++
	s.gotPath = path
	return s.res, s.err
}

func (s *stubExtractor) ExtractPDF(_ context.Context, path string, pr ocr.PageRange) (ocr.ExtractionResult, error) {
	s.calls++
	s.gotPath = path
	s.gotRange = pr
	return s.res, s.err
}

type envelope struct {
	Status    string          `json:"status"`
	Code      string          `json:"code"`
	Error     string          `json:"error"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func newTestServer(ext Extractor, maxUpload int64) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(Options{UploadMaxBytes: maxUpload}, ext, logger,
		WithPageCounter(func(string) (int, error) { return 7, nil }))
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func postFile(t *testing.T, s *Server, target, filename string, content []byte, fields map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, ct := multipartBody(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", ct)
	return do(t, s, req)
}

func pdfResult() ocr.ExtractionResult {
	return ocr.ExtractionResult{
		Text:       "صفحه دو.\n\n\nصفحه سه.\n",
		Pages:      2,
		PageTexts:  []ocr.PageText{{Number: 2, Text: "صفحه دو.\n"}, {Number: 3, Text: "صفحه سه.\n"}},
		FirstPage:  2,
		LastPage:   3,
		TotalPages: 7,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Confidence: 0.8,
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	rec, env := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), env.RequestID)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestNormalize(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	in := "كتاب ها مي شود   123 abc"

	req := httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader(fmt.Sprintf(`{"text":%q}`, in)))
	req.Header.Set("Content-Type", "application/json")
	rec, env := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, normalize.Normalize(in), resp.Text)
	assert.Empty(t, resp.Stages)
}

func TestNormalize_Trace(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/normalize?trace=1", strings.NewReader(`{"text":"سلام ."}`))
	rec, env := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Stages, len(normalize.Stages()))
	assert.Equal(t, resp.Text, resp.Stages[len(resp.Stages)-1].Text)
}

func TestNormalize_BadBody(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	for _, body := range []string{`{"txt":"x"}`, `not json`} {
		rec, env := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "InvalidArgument", env.Code)
	}
}

func TestNormalize_TextTooLong(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	body := fmt.Sprintf(`{"text":%q}`, strings.Repeat("ب", maxNormalizeRunes+1))
	rec, env := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidArgument", env.Code)
	assert.Contains(t, env.Error, "text")

	body = fmt.Sprintf(`{"text":%q}`, strings.Repeat("ب", maxNormalizeRunes))
	rec, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOCR_PDFRange(t *testing.T) {
	ext := &stubExtractor{res: pdfResult()}
	s := newTestServer(ext, 0)

	rec, env := postFile(t, s, "/v1/ocr", "book.PDF", []byte("%PDF-1.4"), map[string]string{"first_page": "2", "last_page": "3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ocr.PageRange{First: 2, Last: 3}, ext.gotRange)
	assert.True(t, strings.HasSuffix(ext.gotPath, ".pdf"))
	assert.NoFileExists(t, ext.gotPath)

	var resp OCRResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.Pages)
	assert.Equal(t, 7, resp.TotalPages)
	assert.Equal(t, "pdf-ocr", resp.Method)
	assert.Equal(t, ocr.FormatResult(pdfResult()), resp.Report)
	assert.Equal(t, pdfResult().Text, resp.Text)
}

func TestOCR_AllPagesOverridesRange(t *testing.T) {
	ext := &stubExtractor{res: pdfResult()}
	s := newTestServer(ext, 0)
	rec, _ := postFile(t, s, "/v1/ocr", "book.pdf", []byte("%PDF"), map[string]string{"first_page": "4", "all_pages": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ocr.AllPages, ext.gotRange)
}

func TestOCR_Download(t *testing.T) {
	s := newTestServer(&stubExtractor{res: pdfResult()}, 0)
	rec, _ := postFile(t, s, "/v1/ocr?download=1", "book.pdf", []byte("%PDF"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=extracted_text.txt", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, ocr.FormatResult(pdfResult()), rec.Body.String())
}

func TestOCR_Image(t *testing.T) {
	ext := &stubExtractor{res: ocr.ExtractionResult{Text: "سلام", Pages: 1, SourceType: constants.IMAGE, Method: "image-ocr"}}
	s := newTestServer(ext, 0)
	rec, env := postFile(t, s, "/v1/ocr", "scan.jpg", []byte{0xff, 0xd8}, map[string]string{"first_page": "9"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ocr.PageRange{}, ext.gotRange)

	var resp OCRResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "سلام", resp.Report)
	assert.Zero(t, resp.TotalPages)
}

func TestOCR_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		extErr   error
		status   int
		code     string
	}{
		{"unsupported extension", "notes.docx", nil, nil, http.StatusBadRequest, "InvalidArgument"},
		{"non-integer page", "a.pdf", map[string]string{"first_page": "two"}, nil, http.StatusBadRequest, "InvalidArgument"},
		{"negative page", "a.pdf", map[string]string{"last_page": "-1"}, nil, http.StatusBadRequest, "InvalidArgument"},
		{"bad boolean", "a.pdf", map[string]string{"all_pages": "maybe"}, nil, http.StatusBadRequest, "InvalidArgument"},
		{"start beyond end of document", "a.pdf", nil, fmt.Errorf("extract: %w", ocr.ErrStartPageOutOfRange), http.StatusBadRequest, "OutOfRange"},
		{"inverted range", "a.pdf", nil, ocr.ErrInvalidPageRange, http.StatusBadRequest, "InvalidArgument"},
		{"corrupt pdf", "a.pdf", nil, fmt.Errorf("%w: malformed xref", ocr.ErrUnreadablePDF), http.StatusBadRequest, "InvalidArgument"},
		{"engine failure", "a.pdf", nil, fmt.Errorf("tesseract: exit status 1"), http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubExtractor{err: tt.extErr}, 0)
			rec, env := postFile(t, s, "/v1/ocr", tt.filename, []byte("x"), tt.fields)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestOCR_NegativePageNamesField(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	rec, env := postFile(t, s, "/v1/ocr", "a.pdf", []byte("x"), map[string]string{"last_page": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "last_page")
	assert.NotContains(t, env.Error, "LastPage")
}

func TestOCR_InternalErrorIsNotLeaked(t *testing.T) {
	s := newTestServer(&stubExtractor{err: fmt.Errorf("open /secret/path: permission denied")}, 0)
	rec, env := postFile(t, s, "/v1/ocr", "a.png", []byte("x"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, env.Error, "/secret/path")
}

func TestOCR_MissingFile(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("first_page", "1"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/ocr", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, env := do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing file field", env.Error)
}

func TestOCR_UploadTooLarge(t *testing.T) {
	ext := &stubExtractor{}
	s := newTestServer(ext, 1024)
	rec, env := postFile(t, s, "/v1/ocr", "big.png", bytes.Repeat([]byte{1}, 64<<10), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "ResourceExhausted", env.Code)
	assert.Zero(t, ext.calls)
}

func TestPDFInfo(t *testing.T) {
	s := newTestServer(&stubExtractor{}, 0)
	rec, env := postFile(t, s, "/v1/pdf/info", "book.pdf", []byte("%PDF"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pages":7}`, string(env.Data))

	rec, _ = postFile(t, s, "/v1/pdf/info", "scan.png", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPDFInfo_Unreadable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(Options{}, &stubExtractor{}, logger,
		WithPageCounter(func(path string) (int, error) {
			_, err := os.Stat(path)
			require.NoError(t, err)
			return 0, fmt.Errorf("pdf page count: malformed")
		}))
	rec, env := postFile(t, s, "/v1/pdf/info", "broken.pdf", []byte("nope"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unreadable PDF", env.Error)
}
