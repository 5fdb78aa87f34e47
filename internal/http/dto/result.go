package dto

import (
	"errors"
	"net/http"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

// Result is the envelope every endpoint returns. Operations never surface a
// raw error across the boundary.
type Result struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Err(code, message string) Result {
	return Result{Success: false, Error: &ErrorDetail{Code: code, Message: message}}
}

// StatusFor maps the error taxonomy onto an HTTP status and stable code.
func StatusFor(err error) (int, string) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		quota      *domain.QuotaExceededError
		format     *domain.InvalidFormatError
		syncErr    *domain.SyncError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &quota):
		return http.StatusInsufficientStorage, "quota_exceeded"
	case errors.As(err, &format):
		return http.StatusBadRequest, "invalid_format"
	case errors.As(err, &syncErr):
		return http.StatusBadGateway, "sync_error"
	default:
		return http.StatusInternalServerError, "storage_error"
	}
}
