package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/persian-ocr/internal/common"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, Envelope{
		Status:    http.StatusText(http.StatusOK),
		RequestID: common.RequestIDFromContext(r.Context()),
		Data:      data,
	})
}

func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	err = classify(err)
	code := common.CodeOf(err)
	status := common.HTTPStatus(code)

	msg := err.Error()
	var ae *common.AppError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	log := common.LoggerFromContext(r.Context(), logger)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", code.String(), "error", err)
		msg = http.StatusText(status)
	} else {
		log.Warn("request rejected", "code", code.String(), "error", err)
	}

	writeJSON(w, status, Envelope{
		Status:    http.StatusText(status),
		Code:      code.String(),
		Error:     msg,
		RequestID: common.RequestIDFromContext(r.Context()),
	})
}

// classify gives extractor sentinels their client-facing codes.
func classify(err error) error {
	var ae *common.AppError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return common.NewAppError(codes.InvalidArgument, err.Error(), err)
	case errors.Is(err, ocr.ErrStartPageOutOfRange):
		return common.NewAppError(codes.OutOfRange, err.Error(), err)
	case errors.Is(err, ocr.ErrInvalidPageRange):
		return common.NewAppError(codes.InvalidArgument, err.Error(), err)
	case errors.Is(err, ocr.ErrUnreadablePDF):
		return common.NewAppError(codes.InvalidArgument, ocr.ErrUnreadablePDF.Error(), err)
	}
	return err
}
