package booking

import (
	"net/http"
	"strings"
	"time"

	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/pkg/validator"
)

const (
	dateLayout = "2006-01-02"

	// MaxDeskDays is the longest desk booking in whole days, both ends included.
	MaxDeskDays = 7
	// MinDuration is the shortest non-desk booking.
	MinDuration = 5 * time.Minute
)

// Messages shown for rejected booking times.
const (
	MsgMissingTimes   = "Start and end are required."
	MsgDeskEndBefore  = "End date must be the same or after start date."
	MsgDeskTooLong    = "Desk bookings cannot exceed 7 full days."
	MsgSameDay        = "Bookings (except desks) must start and end on the same day."
	MsgEndAfterStart  = "End must be after Start."
	MsgMinDuration    = "Minimum duration is 5 minutes."
	MsgPastStartDate  = "Start date is in the past."
	MsgPastStartTime  = "Start time is in the past."
	MsgTypeMismatch   = "space_type does not match the selected space."
	MsgTypeUnknown    = "The space type is unknown. Send space_type."

	msgInvalidDate     = "Invalid date. Expected YYYY-MM-DD"
	msgInvalidDateTime = "Invalid date and time. Expected YYYY-MM-DDTHH:MM"
)

// ValidationError is a booking rejected before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *ValidationError) ErrorCode() string {
	return "BOOKING_INVALID"
}

func (e *ValidationError) Details() map[string]string {
	return map[string]string{e.Field: e.Message}
}

// ErrMissingTimes is returned when a start or end input is empty.
var ErrMissingTimes = &ValidationError{Field: "start", Message: MsgMissingTimes}

// Window is a validated booking interval. Warning is a non-blocking notice.
type Window struct {
	Start   time.Time
	End     time.Time
	Warning string
}

// IsDesk reports whether a backend space type uses whole-day bookings.
func IsDesk(spaceType string) bool {
	return strings.EqualFold(strings.TrimSpace(spaceType), "desk")
}

// DeskMode reports whether sp takes whole-day desk bookings. The backend type
// of the resolved space decides; a claimed space_type must name the same type.
// claimed is only used on its own when the backend did not report a type.
func DeskMode(sp space.Space, claimed string) (bool, error) {
	claimed = strings.TrimSpace(claimed)
	if sp.Type == "" {
		if claimed == "" {
			return false, &ValidationError{Field: "space_type", Message: MsgTypeUnknown}
		}
		return IsDesk(claimed), nil
	}
	if claimed != "" && !strings.EqualFold(claimed, sp.Type) && space.UIType(claimed) != space.UIType(sp.Type) {
		return false, &ValidationError{Field: "space_type", Message: MsgTypeMismatch}
	}
	return IsDesk(sp.Type), nil
}

// ValidateDesk checks a whole-day desk booking from startDate to endDate
// inclusive. The window runs from startDate 00:00 to the midnight after endDate.
func ValidateDesk(startDate, endDate string, now time.Time, loc *time.Location) (Window, error) {
	if startDate == "" || endDate == "" {
		return Window{}, ErrMissingTimes
	}
	s, err := time.ParseInLocation(dateLayout, startDate, loc)
	if err != nil {
		return Window{}, &ValidationError{Field: "start_date", Message: msgInvalidDate}
	}
	e, err := time.ParseInLocation(dateLayout, endDate, loc)
	if err != nil {
		return Window{}, &ValidationError{Field: "end_date", Message: msgInvalidDate}
	}

	if e.Before(s) {
		return Window{}, &ValidationError{Field: "end_date", Message: MsgDeskEndBefore}
	}
	if daysInclusive(s, e) > MaxDeskDays {
		return Window{}, &ValidationError{Field: "end_date", Message: MsgDeskTooLong}
	}

	w := Window{
		Start: s,
		End:   time.Date(e.Year(), e.Month(), e.Day()+1, 0, 0, 0, 0, loc),
	}
	if s.Before(startOfDay(now, loc)) {
		w.Warning = MsgPastStartDate
	}
	return w, nil
}

// ValidateTimed checks a same-day booking given as local wall-clock times.
func ValidateTimed(start, end string, now time.Time, loc *time.Location) (Window, error) {
	if start == "" || end == "" {
		return Window{}, ErrMissingTimes
	}
	s, ok := validator.ParseLocalDateTime(start, loc)
	if !ok {
		return Window{}, &ValidationError{Field: "start", Message: msgInvalidDateTime}
	}
	e, ok := validator.ParseLocalDateTime(end, loc)
	if !ok {
		return Window{}, &ValidationError{Field: "end", Message: msgInvalidDateTime}
	}

	if s.Format(dateLayout) != e.Format(dateLayout) {
		return Window{}, &ValidationError{Field: "end", Message: MsgSameDay}
	}
	d := e.Sub(s)
	if d <= 0 {
		return Window{}, &ValidationError{Field: "end", Message: MsgEndAfterStart}
	}
	if d < MinDuration {
		return Window{}, &ValidationError{Field: "end", Message: MsgMinDuration}
	}

	w := Window{Start: s, End: e}
	if s.Before(now) {
		w.Warning = MsgPastStartTime
	}
	return w, nil
}

func daysInclusive(s, e time.Time) int {
	su := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	eu := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(eu.Sub(su).Hours()/24) + 1
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
