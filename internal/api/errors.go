package api

import (
	"errors"
	"net/http"

	"study-rag/internal/chromemdb"
	"study-rag/internal/llmservice"
	"study-rag/internal/parser"
	"study-rag/internal/study"
)

// MapErrorToStatusCode maps service errors to HTTP status codes
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, study.ErrDemoUnavailable):
		return http.StatusNotFound

	case errors.Is(err, study.ErrValidation),
		errors.Is(err, chromemdb.ErrIndexNotFound),
		errors.Is(err, chromemdb.ErrUntrustedIndex),
		errors.Is(err, llmservice.ErrConfiguration),
		errors.Is(err, parser.ErrExtraction):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the detail sent to the client
func ErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}
	var se *study.Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return err.Error()
}
