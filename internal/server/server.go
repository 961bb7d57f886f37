// Package server exposes the OCR pipeline and the normalizer over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

// Extractor is the slice of *ocr.Extractor the handlers need.
type Extractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
	ExtractPDF(ctx context.Context, path string, pr ocr.PageRange) (ocr.ExtractionResult, error)
}

type Options struct {
	Addr           string
	UploadMaxBytes int64
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server is a thin wrapper over chi and http.Server.
type Server struct {
	addr       string
	mux        *chi.Mux
	srv        *http.Server
	extractor  Extractor
	pageCount  func(path string) (int, error)
	maxUpload  int64
	logger     *slog.Logger
	reqTimeout time.Duration
}

type Option func(*Server)

// WithPageCounter replaces the pdfcpu page counter used by /v1/pdf/info.
func WithPageCounter(fn func(path string) (int, error)) Option {
	return func(s *Server) {
		if fn != nil {
			s.pageCount = fn
		}
	}
}

func NewServer(opts Options, extractor Extractor, logger *slog.Logger, extra ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 50 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}

	s := &Server{
		addr:       opts.Addr,
		mux:        chi.NewRouter(),
		extractor:  extractor,
		pageCount:  ocr.PageCount,
		maxUpload:  opts.UploadMaxBytes,
		logger:     logger,
		reqTimeout: opts.RequestTimeout,
	}
	for _, o := range extra {
		o(s)
	}

	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.RealIP)
	s.mux.Use(requestContext(logger))
	s.mux.Use(accessLog(logger))
	s.mux.Use(chimw.Recoverer)
	s.mux.Use(corsHandler(opts.AllowedOrigins))
	s.routes()

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Route("/v1", func(r chi.Router) {
		r.Post("/normalize", s.handleNormalize)
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.reqTimeout))
			r.Post("/pdf/info", s.handlePDFInfo)
			r.Post("/ocr", s.handleOCR)
		})
	})
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Addr() string { return s.addr }

// Run starts the server and blocks until it is shut down.
func (s *Server) Run() error {
	s.logger.Info("http listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
