package errorhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
)

// HandleError handles an error response with full logging
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// HandleServiceError logs a domain or backend error and writes the mapped response.
// Client errors are logged at warn level, everything else at error level.
func HandleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := response.StatusFor(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event = event.
		Str("request_id", getRequestID(ctx)).
		Int("status_code", status).
		Err(err)

	var apiErr *officeapi.APIError
	if errors.As(err, &apiErr) {
		event = event.
			Str("backend_endpoint", apiErr.Method+" "+apiErr.Path).
			Int("backend_status", apiErr.Status)
	}

	event.Msg("Service error")

	response.FromError(w, err)
}

// HandlePanicError logs and handles panics
func HandlePanicError(ctx context.Context, w http.ResponseWriter, panicErr interface{}, stackTrace string) {
	log.Error().
		Str("request_id", getRequestID(ctx)).
		Interface("panic_error", panicErr).
		Str("panic_stack", stackTrace).
		Msg("Request panic error")

	response.Error(w, http.StatusInternalServerError, "PANIC_ERROR", "Internal server panic")
}

// LogValidationError logs validation errors with details
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	log.Warn().
		Str("request_id", getRequestID(ctx)).
		RawJSON("validation_errors", errJSON).
		Msg("Validation error")
}

// LogDatabaseError logs database errors with context
func LogDatabaseError(ctx context.Context, operation string, err error) {
	log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("operation", operation).
		Err(err).
		Msg("Database error")
}

func getRequestID(ctx context.Context) string {
	if id := logger.RequestID(ctx); id != "" {
		return id
	}
	return "unknown"
}
