package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is matched by TransitionError.
var ErrInvalidTransition = errors.New("invalid booking status transition")

var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus normalizes a backend status string.
func ParseStatus(s string) Status {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "canceled":
		return StatusCancelled
	default:
		return Status(v)
	}
}

// Terminal reports statuses no transition leaves.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Active reports statuses that occupy the space.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From == StatusCancelled && e.To == StatusCancelled {
		return "Booking is already cancelled."
	}
	return fmt.Sprintf("Booking cannot go from %s to %s.", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func (e *TransitionError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *TransitionError) ErrorCode() string {
	return "INVALID_TRANSITION"
}

// checkTransition returns a TransitionError when from is known and to is not allowed.
func checkTransition(id string, from, to Status) error {
	if from == "" || CanTransition(from, to) {
		return nil
	}
	return &TransitionError{ID: id, From: from, To: to}
}

// Booking is a backend booking record read with field aliases.
type Booking struct {
	ID        string
	UserID    string
	UserEmail string
	SpaceID   string
	Title     string
	Attendees int
	Start     time.Time
	End       time.Time
	Status    Status
	Notes     string
	Space     json.RawMessage

	raw map[string]json.RawMessage
}

var (
	startKeys = []string{"start_utc", "start_time", "start", "startAt"}
	endKeys   = []string{"end_utc", "end_time", "end", "endAt"}
)

func (b *Booking) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = Booking{raw: fields}

	var user map[string]json.RawMessage
	_ = json.Unmarshal(fields["user"], &user)

	b.ID = first(fields, "id", "booking_id")
	b.UserID = first(fields, "user_id", "userId")
	if b.UserID == "" {
		b.UserID = first(user, "id")
	}
	b.UserEmail = first(fields, "user_email", "userEmail")
	if b.UserEmail == "" {
		b.UserEmail = first(user, "email")
	}
	b.SpaceID = first(fields, "space_id", "spaceId")
	b.Title = first(fields, "title")
	b.Notes = first(fields, "notes")
	b.Status = ParseStatus(first(fields, "status"))

	if n, err := strconv.Atoi(first(fields, "attendees", "people_count")); err == nil {
		b.Attendees = n
	}
	b.Start = parseTime(first(fields, startKeys...))
	b.End = parseTime(first(fields, endKeys...))

	if sp, ok := fields["space"]; ok && len(sp) > 0 && sp[0] == '{' {
		b.Space = sp
	}
	return nil
}

// MarshalJSON writes the backend fields plus the normalized ones.
func (b Booking) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(b.raw)+10)
	for k, v := range b.raw {
		out[k] = v
	}

	out["id"] = idValue(b.ID)
	if b.UserID != "" {
		out["user_id"] = idValue(b.UserID)
	}
	if b.UserEmail != "" {
		out["user_email"] = b.UserEmail
	}
	if b.SpaceID != "" {
		out["space_id"] = idValue(b.SpaceID)
	}
	out["title"] = b.Title
	if b.Attendees > 0 {
		out["attendees"] = b.Attendees
	}
	if !b.Start.IsZero() {
		out["start_utc"] = b.Start.UTC().Format(time.RFC3339)
	}
	if !b.End.IsZero() {
		out["end_utc"] = b.End.UTC().Format(time.RFC3339)
	}
	out["status"] = b.Status
	if b.Notes != "" {
		out["notes"] = b.Notes
	}
	if len(b.Space) > 0 {
		out["space"] = b.Space
	}
	return json.Marshal(out)
}

// OnDay reports whether the booking starts on the calendar day of day in loc.
func (b Booking) OnDay(day string, loc *time.Location) bool {
	if b.Start.IsZero() {
		return false
	}
	return b.Start.In(loc).Format(dateLayout) == day
}

// Overlaps reports whether the booking intersects [start, end]. A booking
// without an end is treated as an instant.
func (b Booking) Overlaps(start, end time.Time) bool {
	if b.Start.IsZero() {
		return false
	}
	bEnd := b.End
	if bEnd.IsZero() {
		bEnd = b.Start
	}
	return !b.Start.After(end) && !bEnd.Before(start)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// parseTime reads backend timestamps. Values without an offset are UTC.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func first(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if v, ok := officeapi.Scalar(fields[k]); ok && v != "" {
			return v
		}
	}
	return ""
}

func idValue(id string) interface{} {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
