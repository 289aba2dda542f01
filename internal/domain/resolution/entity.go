package resolution

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// Outcome kinds.
const (
	OutcomeAccepted  = "accepted"
	OutcomeNotFound  = "not_found"
	OutcomeAuth      = "auth"
	OutcomeTransport = "transport"
	OutcomeError     = "error"
)

// Entry is one recorded endpoint resolution.
type Entry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Operation  string    `db:"operation" json:"operation"`
	RequestID  string    `db:"request_id" json:"request_id,omitempty"`
	Outcome    string    `db:"outcome" json:"outcome"`
	Endpoint   string    `db:"endpoint" json:"endpoint,omitempty"`
	Status     int       `db:"status" json:"status,omitempty"`
	Error      string    `db:"error" json:"error,omitempty"`
	Attempts   Attempts  `db:"attempts" json:"attempts"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Attempts is stored as a JSONB array.
type Attempts []officeapi.Attempt

func (a Attempts) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Attempts) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("resolution: cannot scan %T into Attempts", src)
	}
	return json.Unmarshal(data, a)
}

// NewEntry converts a resolver outcome into an entry.
func NewEntry(o officeapi.Outcome, now time.Time) *Entry {
	e := &Entry{
		ID:         uuid.New(),
		Operation:  o.Operation,
		RequestID:  o.RequestID,
		Outcome:    classify(o.Err),
		Endpoint:   o.Endpoint,
		Status:     o.Status,
		Attempts:   Attempts(o.Attempts),
		DurationMs: o.Duration.Milliseconds(),
		CreatedAt:  now.UTC(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if e.Status == 0 && len(e.Attempts) > 0 {
		e.Status = e.Attempts[len(e.Attempts)-1].Status
	}
	return e
}

func classify(err error) string {
	var transportErr *officeapi.TransportError
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, officeapi.ErrNotFound):
		return OutcomeNotFound
	case officeapi.IsAuthError(err):
		return OutcomeAuth
	case errors.As(err, &transportErr):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}
