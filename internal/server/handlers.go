package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core/normalize"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/persian-ocr/internal/export"
)

const multipartMemory = 8 << 20

type ocrForm struct {
	FirstPage int  `form:"first_page" validate:"gte=0"`
	LastPage  int  `form:"last_page" validate:"gte=0"`
	AllPages  bool `form:"all_pages"`
}

func (f ocrForm) pageRange() ocr.PageRange {
	if f.AllPages {
		return ocr.AllPages
	}
	return ocr.PageRange{First: f.FirstPage, Last: f.LastPage}
}

type OCRResponse struct {
	Text       string   `json:"text"`
	Report     string   `json:"report"`
	SourceType string   `json:"source_type"`
	Method     string   `json:"method"`
	Pages      int      `json:"pages"`
	Confidence float32  `json:"confidence"`
	FirstPage  int      `json:"first_page,omitempty"`
	LastPage   int      `json:"last_page,omitempty"`
	TotalPages int      `json:"total_pages,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Warnings   []string `json:"warnings,omitempty"`
}

// maxNormalizeRunes bounds /v1/normalize input independently of the body limit.
const maxNormalizeRunes = 1 << 20

type NormalizeRequest struct {
	Text string `json:"text"`
}

type NormalizeResponse struct {
	Text   string                 `json:"text"`
	Stages []normalize.StageOutput `json:"stages,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handlePDFInfo(w http.ResponseWriter, r *http.Request) {
	path, ext, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		respondError(w, r, s.logger, err)
		return
	}
	defer cleanup()
	if constants.MapExtToFormat(ext) != constants.PDF {
		respondError(w, r, s.logger, common.NewAppError(codes.InvalidArgument, "file must be a PDF", nil))
		return
	}
	n, err := s.pageCount(path)
	if err != nil {
		respondError(w, r, s.logger, fmt.Errorf("%w: %w", ocr.ErrUnreadablePDF, err))
		return
	}
	respondOK(w, r, map[string]int{"pages": n})
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	path, ext, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		respondError(w, r, s.logger, err)
		return
	}
	defer cleanup()

	form, err := parseOCRForm(r)
	if err != nil {
		respondError(w, r, s.logger, err)
		return
	}

	var res ocr.ExtractionResult
	if constants.MapExtToFormat(ext) == constants.PDF {
		res, err = s.extractor.ExtractPDF(r.Context(), path, form.pageRange())
	} else {
		res, err = s.extractor.Extract(r.Context(), path)
	}
	if err != nil {
		respondError(w, r, s.logger, err)
		return
	}

	report := ocr.FormatResult(res)
	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.TextFileName))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, report)
		return
	}

	respondOK(w, r, OCRResponse{
		Text:       res.Text,
		Report:     report,
		SourceType: res.SourceType,
		Method:     res.Method,
		Pages:      res.Pages,
		Confidence: res.Confidence,
		FirstPage:  res.FirstPage,
		LastPage:   res.LastPage,
		TotalPages: res.TotalPages,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   res.Warnings,
	})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	var req NormalizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respondError(w, r, s.logger, tooLarge(mbe.Limit))
			return
		}
		respondError(w, r, s.logger, common.NewAppError(codes.InvalidArgument, "invalid JSON body", err))
		return
	}
	if err := common.NewValidator().Field("text", req.Text, common.MaxLength(maxNormalizeRunes)).Err(); err != nil {
		respondError(w, r, s.logger, err)
		return
	}

	resp := NormalizeResponse{Text: normalize.Normalize(req.Text)}
	if trace, _ := strconv.ParseBool(r.URL.Query().Get("trace")); trace {
		resp.Stages = normalize.Trace(req.Text)
	}
	respondOK(w, r, resp)
}

// saveUpload spools the multipart "file" field to a temp file that keeps the
// upload's extension. The caller must run cleanup.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request) (path, ext string, cleanup func(), err error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", "", nil, tooLarge(mbe.Limit)
		}
		return "", "", nil, common.NewAppError(codes.InvalidArgument, "expected multipart/form-data", err)
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, common.NewAppError(codes.InvalidArgument, "missing file field", err)
	}
	defer file.Close()

	ext = constants.NormalizeExt(filepath.Ext(hdr.Filename))
	if constants.MapExtToFormat(ext) == "" {
		return "", "", nil, common.NewAppError(codes.InvalidArgument,
			fmt.Sprintf("unsupported file type %q", ext), ocr.ErrUnsupportedFormat)
	}

	tmp, err := os.CreateTemp("", "upload-*."+ext)
	if err != nil {
		return "", "", nil, common.WrapError(err, "create temp file")
	}
	cleanup = func() {
		_ = os.Remove(tmp.Name())
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", "", nil, common.WrapError(err, "spool upload")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", "", nil, common.WrapError(err, "spool upload")
	}
	return tmp.Name(), ext, cleanup, nil
}

func parseOCRForm(r *http.Request) (ocrForm, error) {
	var f ocrForm
	v := common.NewValidator()
	parseInt := func(name string, dst *int) {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.Field(name, raw, func(field string, value any) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: "must be an integer"}
			})
			return
		}
		*dst = n
	}
	parseInt("first_page", &f.FirstPage)
	parseInt("last_page", &f.LastPage)
	if raw := strings.TrimSpace(r.FormValue("all_pages")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			v.Field("all_pages", raw, func(field string, value any) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: "must be a boolean"}
			})
		}
		f.AllPages = b
	}
	if err := v.Err(); err != nil {
		return f, err
	}
	return f, common.ValidateStruct(f)
}

func tooLarge(limit int64) error {
	return common.NewAppError(codes.ResourceExhausted,
		fmt.Sprintf("upload exceeds %d bytes", limit), common.ErrTooLarge)
}
