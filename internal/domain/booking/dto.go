package booking

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// CreateRequest is the booking form.
//
// Desk bookings send start_date and end_date; every other space sends start
// and end as local wall-clock times. Which pair is read depends on the type of
// the resolved space. space_id may be a numeric id or a map id such as "desk3".
type CreateRequest struct {
	SpaceID   FlexString `json:"space_id" validate:"required,max=128"`
	SpaceType string     `json:"space_type" validate:"omitempty,max=64"`
	Title     string     `json:"title" validate:"omitempty,max=200"`
	StartDate string     `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string     `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Start     string     `json:"start" validate:"omitempty,localdatetime"`
	End       string     `json:"end" validate:"omitempty,localdatetime"`
	Attendees *int       `json:"attendees" validate:"omitempty,gte=1"`
	Notes     string     `json:"notes" validate:"omitempty,max=2000"`
}

// AttendeeCount returns the requested head count, defaulting to 1.
func (r CreateRequest) AttendeeCount() int {
	if r.Attendees == nil || *r.Attendees < 1 {
		return 1
	}
	return *r.Attendees
}

// CreateResponse is returned after a booking is accepted by the backend.
type CreateResponse struct {
	Booking  *Booking `json:"booking,omitempty"`
	SpaceID  int64    `json:"space_id"`
	Endpoint string   `json:"endpoint"`
	Warning  string   `json:"warning,omitempty"`
}

// ListResponse is a list of bookings and the backend route that served it.
type ListResponse struct {
	Bookings []Booking `json:"bookings"`
	Endpoint string    `json:"endpoint,omitempty"`
}

// ActionResponse is returned by cancel, approve and reject.
type ActionResponse struct {
	ID       string          `json:"id"`
	Status   Status          `json:"status"`
	Endpoint string          `json:"endpoint"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// CountResponse is the number of active bookings in a month.
type CountResponse struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Count    int    `json:"count"`
	Endpoint string `json:"endpoint,omitempty"`
}

// DayRequest selects a calendar day.
type DayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// RangeRequest selects an interval. Bounds are RFC 3339 timestamps or dates.
type RangeRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// MonthRequest selects a calendar month.
type MonthRequest struct {
	Year  int `json:"year" validate:"required,gte=1970,lte=9999"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}
