package officeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/logger"
)

// Candidate is one concrete backend route to try for an operation.
type Candidate struct {
	Method string
	Path   string
	Body   interface{}
}

// Get is shorthand for a GET candidate.
func Get(path string) Candidate {
	return Candidate{Method: http.MethodGet, Path: path}
}

func (c Candidate) String() string {
	return c.Method + " " + c.Path
}

// Attempt is one tried candidate and the status it returned.
type Attempt struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	OK     bool   `json:"ok"`
}

// Result is the response of the first accepted candidate.
type Result struct {
	Operation string
	Endpoint  string
	Method    string
	Path      string
	Status    int
	Body      json.RawMessage
	Attempts  []Attempt
}

// Accept decides whether a response counts as success for an operation.
type Accept func(resp *Response) bool

// AcceptSuccess accepts any 2xx response.
func AcceptSuccess(resp *Response) bool {
	return resp.OK()
}

// AcceptList accepts a 2xx response whose body is a list or list envelope.
func AcceptList(resp *Response) bool {
	if !resp.OK() {
		return false
	}
	_, ok := UnwrapList(resp.Body)
	return ok
}

// AcceptNonEmpty accepts a 2xx response with a body.
func AcceptNonEmpty(resp *Response) bool {
	return resp.OK() && !resp.Empty()
}

// Outcome describes a finished resolution for recorders.
type Outcome struct {
	Operation string
	RequestID string
	Endpoint  string
	Status    int
	Attempts  []Attempt
	Err       error
	Duration  time.Duration
}

// Recorder receives every resolution outcome.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome)
}

// Resolve tries candidates in order and returns the first accepted response.
//
// A transport failure or a 401/403 stops the search; every other response
// moves on to the next candidate. When none is accepted the error is a
// *ResolutionError, which matches ErrNotFound.
func (c *Client) Resolve(ctx context.Context, op string, candidates []Candidate, accept Accept) (*Result, error) {
	if accept == nil {
		accept = AcceptSuccess
	}
	started := c.now()
	token := c.Token(ctx)

	var attempts []Attempt
	var lastMessage string

	finish := func(res *Result, err error) (*Result, error) {
		if c.recorder != nil {
			outcome := Outcome{
				Operation: op,
				RequestID: logger.RequestID(ctx),
				Attempts:  attempts,
				Err:       err,
				Duration:  c.now().Sub(started),
			}
			if res != nil {
				outcome.Endpoint = res.Endpoint
				outcome.Status = res.Status
			}
			c.recorder.Record(ctx, outcome)
		}
		return res, err
	}

	for _, cand := range candidates {
		resp, err := c.DoWithToken(ctx, cand.Method, cand.Path, cand.Body, token)
		if err != nil {
			attempts = append(attempts, Attempt{Method: cand.Method, Path: cand.Path})
			logger.LogWarn(ctx, "backend unreachable, aborting resolution",
				"operation", op,
				"candidate", cand.String(),
				"error", err.Error(),
			)
			return finish(nil, err)
		}

		accepted := accept(resp)
		attempts = append(attempts, Attempt{
			Method: cand.Method,
			Path:   cand.Path,
			Status: resp.Status,
			OK:     accepted,
		})

		if c.debug {
			logger.LogDebug(ctx, "resolver attempt",
				"operation", op,
				"candidate", cand.String(),
				"status", resp.Status,
				"accepted", accepted,
			)
		}

		if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden {
			return finish(nil, newAuthError(resp))
		}

		if accepted {
			return finish(&Result{
				Operation: op,
				Endpoint:  cand.String(),
				Method:    cand.Method,
				Path:      cand.Path,
				Status:    resp.Status,
				Body:      json.RawMessage(resp.Body),
				Attempts:  attempts,
			}, nil)
		}

		if msg := ExtractMessage(resp.Body); msg != "" {
			lastMessage = msg
		} else {
			lastMessage = fmt.Sprintf("%d %s", resp.Status, resp.StatusText)
		}
	}

	return finish(nil, &ResolutionError{
		Operation:   op,
		Attempts:    attempts,
		LastMessage: lastMessage,
	})
}

// Attempts returns the attempts carried by a resolution error, if any.
func Attempts(err error) []Attempt {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Attempts
	}
	return nil
}
