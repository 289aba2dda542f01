package response

import (
	"errors"
	"net/http"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// Coded is implemented by errors that choose their own status and code.
type Coded interface {
	error
	HTTPStatus() int
	ErrorCode() string
}

// Detailed is implemented by errors carrying per-field messages.
type Detailed interface {
	Details() map[string]string
}

// StatusFor returns the HTTP status FromError would use for err.
func StatusFor(err error) int {
	status, _ := classify(err)
	return status
}

// FromError maps a service error to an error response.
//
// Backend 4xx statuses are mirrored, backend 5xx and transport failures
// become 502, and exhausted endpoint resolution becomes 404.
func FromError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	info := &ErrorInfo{Code: code, Message: messageOf(err)}

	var detailed Detailed
	if errors.As(err, &detailed) {
		info.Details = detailed.Details()
	}

	var resErr *officeapi.ResolutionError
	if errors.As(err, &resErr) {
		info.Attempts = resErr.Attempts
	}

	var transportErr *officeapi.TransportError
	if errors.As(err, &transportErr) {
		info.Message = "Booking service is unreachable"
	}

	if status == http.StatusInternalServerError {
		info.Message = "An unexpected error occurred"
	}

	write(w, status, info)
}

// messageOf returns the message of the innermost typed error so that
// wrapping context stays in the logs only.
func messageOf(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Error()
	}
	var resErr *officeapi.ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Error()
	}
	var apiErr *officeapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

func classify(err error) (int, string) {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.HTTPStatus(), coded.ErrorCode()
	}

	var resErr *officeapi.ResolutionError
	if errors.As(err, &resErr) {
		return http.StatusNotFound, "ENDPOINT_NOT_FOUND"
	}

	var apiErr *officeapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return http.StatusUnauthorized, "UNAUTHORIZED"
		case apiErr.Status == http.StatusForbidden:
			return http.StatusForbidden, "FORBIDDEN"
		case apiErr.Status == http.StatusNotFound:
			return http.StatusNotFound, "NOT_FOUND"
		case apiErr.Status == http.StatusConflict:
			return http.StatusConflict, "CONFLICT"
		case apiErr.Status == http.StatusUnprocessableEntity:
			return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return apiErr.Status, "BACKEND_REJECTED"
		default:
			return http.StatusBadGateway, "BACKEND_ERROR"
		}
	}

	var transportErr *officeapi.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusBadGateway, "BACKEND_UNAVAILABLE"
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
