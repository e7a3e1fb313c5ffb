package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/chunk"
	"github.com/ul-gh/hdscope/domain/filter"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/infrastructure/api/jsonapi"
	"github.com/ul-gh/hdscope/infrastructure/scpi"
)

// ErrUnauthorized marks requests without a valid API key.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is an error raised by a handler with an explicit HTTP status.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError returns an error answered with code.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// BadRequest returns a 400 error for rejected input.
func BadRequest(message string, cause error) *APIError {
	return NewAPIError(http.StatusBadRequest, message, cause)
}

// Unauthorized returns a 401 error that matches ErrUnauthorized.
func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *APIError) Unwrap() error { return e.cause }

// Code returns the HTTP status.
func (e *APIError) Code() int { return e.code }

// Message returns the message without the cause.
func (e *APIError) Message() string { return e.message }

// statusTable maps domain errors to responses. The first row with a
// matching error wins.
var statusTable = []struct {
	code  int
	title string
	errs  []error
}{
	{http.StatusUnauthorized, "Authentication Failed", []error{ErrUnauthorized}},
	{http.StatusNotFound, "Not Found", []error{store.ErrNotFound}},
	{http.StatusBadRequest, "Validation Error", []error{
		instrument.ErrInvalidChannel,
		instrument.ErrInvalidMemoryDepth,
		instrument.ErrAutoMemoryDepth,
		service.ErrInvalidSampleCount,
		service.ErrInvalidWindow,
		filter.ErrUnknownFilter,
		filter.ErrInvalidWindow,
		chunk.ErrInvalidRange,
	}},
	{http.StatusNotImplemented, "Not Supported", []error{instrument.ErrUnsupported}},
	{http.StatusServiceUnavailable, "Instrument Unavailable", []error{
		service.ErrNoScope,
		service.ErrBusy,
		service.ErrClientClosed,
	}},
	{http.StatusBadGateway, "Instrument Error", []error{
		instrument.ErrShortRead,
		instrument.ErrTransport,
		scpi.ErrMalformedReply,
	}},
}

// Status maps an error to its HTTP status and title. Unknown errors are
// internal server errors.
func Status(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		for _, row := range statusTable {
			if row.code == apiErr.code {
				return row.code, row.title
			}
		}
		return apiErr.code, http.StatusText(apiErr.code)
	}
	for _, row := range statusTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.code, row.title
			}
		}
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// WriteError answers with a JSON:API error document for err and logs it,
// at error level for 5xx and warn otherwise. logger may be nil.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	code, title := Status(err)
	requestID := chimiddleware.GetReqID(r.Context())

	if logger != nil {
		level := slog.LevelWarn
		if code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(r.Context(), level, "request failed",
			slog.Int("status", code),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	detail := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.cause == nil {
		detail = apiErr.message
	}
	e := jsonapi.NewError(code, title, detail)
	e.ID = requestID
	WriteDocument(w, code, jsonapi.Errors(e))
}

// WriteJSON writes data as plain JSON.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteDocument writes a JSON:API document.
func WriteDocument(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}
