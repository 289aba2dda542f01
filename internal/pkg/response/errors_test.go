package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

type codedErr struct{}

func (codedErr) Error() string { return "End must be after Start." }
func (codedErr) HTTPStatus() int { return http.StatusUnprocessableEntity }
func (codedErr) ErrorCode() string { return "BOOKING_INVALID" }
func (codedErr) Details() map[string]string { return map[string]string{"end": "End must be after Start."} }

func TestFromErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"coded", codedErr{}, http.StatusUnprocessableEntity, "BOOKING_INVALID"},
		{"backend conflict", &officeapi.APIError{Status: http.StatusConflict, Message: "taken"}, http.StatusConflict, "CONFLICT"},
		{"backend 400", &officeapi.APIError{Status: http.StatusBadRequest, Message: "capacity"}, http.StatusBadRequest, "BACKEND_REJECTED"},
		{"backend 500", &officeapi.APIError{Status: http.StatusInternalServerError, Message: "boom"}, http.StatusBadGateway, "BACKEND_ERROR"},
		{"resolution", &officeapi.ResolutionError{Operation: "cancel"}, http.StatusNotFound, "ENDPOINT_NOT_FOUND"},
		{"transport", &officeapi.TransportError{Kind: "timeout", Err: errors.New("deadline")}, http.StatusBadGateway, "BACKEND_UNAVAILABLE"},
		{"wrapped", fmt.Errorf("cancel: %w", &officeapi.APIError{Status: http.StatusForbidden}), http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(rr, tc.err)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var resp Response
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tc.code {
				t.Fatalf("unexpected body %+v", resp)
			}
		})
	}
}

func TestFromErrorCarriesDetailsAndAttempts(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(rr, codedErr{})

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Details["end"] == "" {
		t.Fatalf("expected details, got %+v", resp.Error)
	}

	rr = httptest.NewRecorder()
	FromError(rr, &officeapi.ResolutionError{
		Operation: "cancel",
		Attempts:  []officeapi.Attempt{{Method: "DELETE", Path: "/bookings/1", Status: 404}},
	})
	resp = Response{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Attempts == nil {
		t.Fatalf("expected attempts, got %+v", resp.Error)
	}
}

func TestFromErrorUsesInnermostMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(rr, fmt.Errorf("create booking: %w", &officeapi.ResolutionError{Operation: "booking"}))

	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Message != "No booking endpoint accepted the request (NOT FOUND)." {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}
