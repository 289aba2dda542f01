package officeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrNotFound is matched by resolution errors when every candidate failed.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx backend response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
	// Raw is the decoded JSON body, or the body text when it is not JSON.
	Raw interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuth reports a 401 or 403 response.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NewAPIError builds an APIError from a failed response.
func NewAPIError(resp *Response) *APIError {
	msg := ExtractMessage(resp.Body)
	if msg == "" {
		msg = strings.TrimSpace(fmt.Sprintf("%d %s", resp.Status, resp.StatusText))
	}
	return &APIError{
		Method:  resp.Method,
		Path:    resp.Path,
		Status:  resp.Status,
		Message: msg,
		Body:    resp.Body,
		Raw:     decodeRaw(resp.Body),
	}
}

func newAuthError(resp *Response) *APIError {
	err := NewAPIError(resp)
	if ExtractMessage(resp.Body) == "" {
		err.Message = fmt.Sprintf("Auth error (%d)", resp.Status)
	}
	return err
}

// TransportError is a failure to get any response from the backend.
type TransportError struct {
	Kind   string // timeout, network, request
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s: %s %s: %v", e.Kind, e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResolutionError means every candidate endpoint was tried without success.
type ResolutionError struct {
	Operation   string
	Attempts    []Attempt
	LastMessage string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("No %s endpoint accepted the request (NOT FOUND).", e.Operation)
	if e.LastMessage != "" {
		msg += " Last error: " + e.LastMessage
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrNotFound
}

// IsAuthError reports whether err carries a 401/403 backend response.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return 0
}

// ExtractMessage returns a human readable message from an error body.
func ExtractMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return text
	}

	switch detail := obj["detail"].(type) {
	case string:
		return detail
	case []interface{}:
		var msgs []string
		for _, item := range detail {
			if m := validationMessage(item); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, " • ")
	case map[string]interface{}:
		if msg, ok := detail["msg"].(string); ok {
			return msg
		}
		encoded, _ := json.Marshal(detail)
		return string(encoded)
	}

	if msg, ok := obj["message"].(string); ok && msg != "" {
		return msg
	}
	return text
}

// validationMessage renders one {loc, msg} entry as "loc: msg".
func validationMessage(item interface{}) string {
	entry, ok := item.(map[string]interface{})
	if !ok {
		return ""
	}
	msg, _ := entry["msg"].(string)

	loc := entry["loc"]
	if list, ok := loc.([]interface{}); ok {
		loc = nil
		if len(list) > 0 {
			loc = list[len(list)-1]
		}
	}

	var locText string
	switch v := loc.(type) {
	case string:
		locText = v
	case float64:
		if v != 0 {
			locText = fmt.Sprintf("%v", v)
		}
	}

	if locText != "" {
		return locText + ": " + msg
	}
	return msg
}

func decodeRaw(body []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func classifyRequestError(ctx context.Context, method, path string, err error) error {
	kind := "request error"
	switch {
	case isTimeoutError(ctx, err):
		kind = "timeout"
	case isNetworkError(err):
		kind = "network error"
	}
	return &TransportError{Kind: kind, Method: method, Path: path, Err: err}
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	return false
}
