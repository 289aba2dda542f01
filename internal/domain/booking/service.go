package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// availabilityFanOut bounds concurrent per-space availability calls.
const availabilityFanOut = 8

var peopleKeys = []string{"people_count", "num_people", "participants", "people", "headcount", "pax"}

// Backend is the part of the backend client the booking service uses.
type Backend interface {
	Resolve(ctx context.Context, op string, candidates []officeapi.Candidate, accept officeapi.Accept) (*officeapi.Result, error)
}

// SpaceResolver finds and lists spaces.
type SpaceResolver interface {
	Lookup(ctx context.Context, key string) (space.Space, error)
	List(ctx context.Context, f space.Filter) ([]space.Space, error)
}

// Viewer identifies the signed-in user for my-bookings filtering.
type Viewer struct {
	ID    string
	Email string
}

// ViewerSource returns the current user, if known.
type ViewerSource interface {
	Viewer(ctx context.Context) (Viewer, bool)
}

// ViewerFunc adapts a function to ViewerSource.
type ViewerFunc func(ctx context.Context) (Viewer, bool)

func (f ViewerFunc) Viewer(ctx context.Context) (Viewer, bool) {
	return f(ctx)
}

// Service validates and performs booking operations against the backend.
type Service struct {
	backend Backend
	spaces  SpaceResolver
	viewer  ViewerSource
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a new booking service. viewer may be nil; loc defaults to time.Local.
func NewService(backend Backend, spaces SpaceResolver, viewer ViewerSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		backend: backend,
		spaces:  spaces,
		viewer:  viewer,
		loc:     loc,
		now:     time.Now,
	}
}

// Location returns the zone local dates and times are read in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Validate checks the booking times of req for the resolved space sp
// without touching the network.
func (s *Service) Validate(req CreateRequest, sp space.Space) (Window, error) {
	desk, err := DeskMode(sp, req.SpaceType)
	if err != nil {
		return Window{}, err
	}
	if desk {
		return ValidateDesk(req.StartDate, req.EndDate, s.now(), s.loc)
	}
	return ValidateTimed(req.Start, req.End, s.now(), s.loc)
}

// Create resolves the space of req, validates the times for that space's
// type and posts the booking.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if (req.StartDate == "" || req.EndDate == "") && (req.Start == "" || req.End == "") {
		return nil, ErrMissingTimes
	}

	sp, err := s.spaces.Lookup(ctx, string(req.SpaceID))
	if err != nil {
		return nil, err
	}
	w, err := s.Validate(req, sp)
	if err != nil {
		return nil, err
	}
	spaceID := sp.ID

	base := createPayload(spaceID, req, w)
	aliased := make(map[string]interface{}, len(base)+2)
	for k, v := range base {
		aliased[k] = v
	}
	aliased["start"] = base["start_utc"]
	aliased["end"] = base["end_utc"]

	id := strconv.FormatInt(spaceID, 10)
	paths := []string{
		"/bookings",
		"/api/bookings",
		"/spaces/" + id + "/bookings",
		"/api/spaces/" + id + "/bookings",
		"/spaces/" + id + "/book",
		"/api/reservations",
		"/reservations",
		"/api/book",
	}
	candidates := make([]officeapi.Candidate, 0, len(paths)*2)
	for _, p := range paths {
		for _, body := range []map[string]interface{}{base, aliased} {
			candidates = append(candidates, officeapi.Candidate{Method: http.MethodPost, Path: p, Body: body})
		}
	}

	res, err := s.backend.Resolve(ctx, "booking", candidates, officeapi.AcceptSuccess)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	out := &CreateResponse{
		SpaceID:  spaceID,
		Endpoint: res.Endpoint,
		Warning:  w.Warning,
	}
	if body := bytes.TrimSpace(res.Body); len(body) > 0 && body[0] == '{' {
		var b Booking
		if err := json.Unmarshal(body, &b); err == nil {
			out.Booking = &b
		}
	}

	logger.LogInfo(ctx, "booking created",
		"space_id", spaceID,
		"endpoint", res.Endpoint,
	)
	return out, nil
}

func createPayload(spaceID int64, req CreateRequest, w Window) map[string]interface{} {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Booking"
	}

	payload := map[string]interface{}{
		"space_id":  spaceID,
		"title":     title,
		"start_utc": w.Start.UTC().Format(time.RFC3339),
		"end_utc":   w.End.UTC().Format(time.RFC3339),
	}
	if req.Notes != "" {
		payload["notes"] = req.Notes
	}

	n := req.AttendeeCount()
	payload["attendees"] = n
	for _, k := range peopleKeys {
		payload[k] = n
	}
	return payload
}

// Mine lists the current user's bookings. Cancelled bookings are dropped
// unless includeCancelled is set.
func (s *Service) Mine(ctx context.Context, includeCancelled bool) (*ListResponse, error) {
	paths := []string{
		"/bookings/mine",
		"/me/bookings",
		"/users/me/bookings",
		"/user/bookings",
		"/api/bookings/mine",
		"/api/me/bookings",
		"/api/users/me/bookings",
		"/api/user/bookings",
		"/bookings",
		"/api/bookings",
		"/reservations/mine",
		"/api/reservations/mine",
		"/reservations",
		"/api/reservations",
	}
	candidates := make([]officeapi.Candidate, 0, len(paths))
	for _, p := range paths {
		candidates = append(candidates, officeapi.Get(p))
	}

	res, err := s.backend.Resolve(ctx, "my bookings", candidates, officeapi.AcceptSuccess)
	if err != nil {
		return nil, fmt.Errorf("my bookings: %w", err)
	}

	all := decodeBookings(officeapi.ListOrSingle(res.Body))

	var viewer Viewer
	known := false
	if s.viewer != nil {
		viewer, known = s.viewer.Viewer(ctx)
	}
	mine := strings.Contains(res.Path, "/mine")

	out := make([]Booking, 0, len(all))
	for _, b := range all {
		if known && !mine && !viewer.owns(b) {
			continue
		}
		if !includeCancelled && b.Status == StatusCancelled {
			continue
		}
		out = append(out, b)
	}
	return &ListResponse{Bookings: out, Endpoint: res.Endpoint}, nil
}

func (v Viewer) owns(b Booking) bool {
	if v.ID != "" && b.UserID == v.ID {
		return true
	}
	return v.Email != "" && b.UserEmail == v.Email
}

// Cancel cancels booking id. known is the status the caller last saw; a
// booking known to be cancelled is refused without a backend call.
func (s *Service) Cancel(ctx context.Context, id string, known Status) (*ActionResponse, error) {
	if err := checkTransition(id, known, StatusCancelled); err != nil {
		return nil, err
	}

	bases := bookingBases(id)
	var candidates []officeapi.Candidate
	for _, b := range bases {
		candidates = append(candidates, officeapi.Candidate{Method: http.MethodDelete, Path: b})
	}
	for _, b := range bases {
		for _, m := range []string{http.MethodPost, http.MethodPatch, http.MethodPut} {
			candidates = append(candidates, officeapi.Candidate{Method: m, Path: b + "/cancel", Body: map[string]interface{}{}})
		}
	}
	bodies := []map[string]interface{}{
		{"status": StatusCancelled},
		{"action": "cancel"},
		{"cancel": true},
	}
	for _, b := range bases {
		for _, body := range bodies {
			for _, m := range []string{http.MethodPatch, http.MethodPut, http.MethodPost} {
				candidates = append(candidates, officeapi.Candidate{Method: m, Path: b, Body: body})
			}
		}
	}
	for _, p := range []string{"/bookings/cancel", "/api/bookings/cancel", "/reservations/cancel", "/api/reservations/cancel"} {
		candidates = append(candidates, officeapi.Candidate{
			Method: http.MethodPost,
			Path:   p,
			Body:   map[string]interface{}{"id": idValue(id)},
		})
	}

	res, err := s.backend.Resolve(ctx, "cancel", candidates, acceptCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", id, err)
	}

	logger.LogInfo(ctx, "booking cancelled", "booking_id", id, "endpoint", res.Endpoint)
	return &ActionResponse{ID: id, Status: StatusCancelled, Endpoint: res.Endpoint, Body: res.Body}, nil
}

// acceptCancelled accepts 200/201/202/204, or any response whose body
// reports the booking as cancelled.
func acceptCancelled(resp *officeapi.Response) bool {
	switch resp.Status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return false
	}
	status, _ := officeapi.Scalar(body["status"])
	if status == "" {
		var data map[string]json.RawMessage
		if err := json.Unmarshal(body["data"], &data); err == nil {
			status, _ = officeapi.Scalar(data["status"])
		}
	}
	return strings.EqualFold(status, string(StatusCancelled))
}

// Pending lists bookings waiting for approval. A backend without a pending
// route yields an empty list.
func (s *Service) Pending(ctx context.Context) (*ListResponse, error) {
	res, err := s.backend.Resolve(ctx, "pending bookings", []officeapi.Candidate{
		officeapi.Get("/bookings/pending"),
		officeapi.Get("/api/bookings/pending"),
	}, officeapi.AcceptList)
	if err != nil {
		if errors.Is(err, officeapi.ErrNotFound) {
			return &ListResponse{Bookings: []Booking{}}, nil
		}
		return nil, fmt.Errorf("pending bookings: %w", err)
	}

	items, _ := officeapi.UnwrapList(res.Body)
	return &ListResponse{Bookings: decodeBookings(items), Endpoint: res.Endpoint}, nil
}

// Approve approves a pending booking.
func (s *Service) Approve(ctx context.Context, id string, known Status) (*ActionResponse, error) {
	return s.decide(ctx, id, known, StatusApproved, "approve")
}

// Reject rejects a pending booking.
func (s *Service) Reject(ctx context.Context, id string, known Status) (*ActionResponse, error) {
	return s.decide(ctx, id, known, StatusRejected, "reject")
}

func (s *Service) decide(ctx context.Context, id string, known, to Status, action string) (*ActionResponse, error) {
	if err := checkTransition(id, known, to); err != nil {
		return nil, err
	}

	bases := bookingBases(id)
	candidates := make([]officeapi.Candidate, 0, len(bases)*2)
	for _, b := range bases {
		candidates = append(candidates, officeapi.Candidate{Method: http.MethodPost, Path: b + "/" + action, Body: map[string]interface{}{}})
	}
	for _, b := range bases {
		candidates = append(candidates, officeapi.Candidate{Method: http.MethodPatch, Path: b, Body: map[string]interface{}{"status": to}})
	}

	res, err := s.backend.Resolve(ctx, action, candidates, officeapi.AcceptSuccess)
	if err != nil {
		return nil, fmt.Errorf("%s booking %s: %w", action, id, err)
	}

	logger.LogInfo(ctx, "booking "+string(to), "booking_id", id, "endpoint", res.Endpoint)
	return &ActionResponse{ID: id, Status: to, Endpoint: res.Endpoint, Body: res.Body}, nil
}

// On lists bookings starting on day (YYYY-MM-DD, local). Results from an
// unfiltered collection route are filtered to that day.
func (s *Service) On(ctx context.Context, day string) (*ListResponse, error) {
	q := url.QueryEscape(day)
	candidates := []officeapi.Candidate{
		officeapi.Get("/bookings?date=" + q),
		officeapi.Get("/api/bookings?date=" + q),
		officeapi.Get("/bookings?day=" + q),
		officeapi.Get("/api/bookings?day=" + q),
		officeapi.Get("/bookings/today"),
		officeapi.Get("/api/bookings/today"),
		officeapi.Get("/bookings"),
		officeapi.Get("/api/bookings"),
	}

	res, err := s.backend.Resolve(ctx, "day bookings", candidates, acceptJSON)
	if err != nil {
		if errors.Is(err, officeapi.ErrNotFound) {
			return &ListResponse{Bookings: []Booking{}}, nil
		}
		return nil, fmt.Errorf("bookings on %s: %w", day, err)
	}

	all := decodeBookings(officeapi.ListOrSingle(res.Body))
	if res.Path != "/bookings" && res.Path != "/api/bookings" {
		return &ListResponse{Bookings: all, Endpoint: res.Endpoint}, nil
	}

	out := make([]Booking, 0, len(all))
	for _, b := range all {
		if b.OnDay(day, s.loc) {
			out = append(out, b)
		}
	}
	return &ListResponse{Bookings: out, Endpoint: res.Endpoint}, nil
}

func acceptJSON(resp *officeapi.Response) bool {
	if !resp.OK() {
		return false
	}
	body := bytes.TrimSpace(resp.Body)
	return len(body) > 0 && (body[0] == '{' || body[0] == '[')
}

// InRange lists bookings intersecting [start, end]. Without a range route
// it asks every space for its availability and keeps pending and approved
// bookings.
func (s *Service) InRange(ctx context.Context, start, end time.Time) (*ListResponse, error) {
	q := officeapi.Query(
		"start", start.UTC().Format(time.RFC3339),
		"end", end.UTC().Format(time.RFC3339),
	)
	res, err := s.backend.Resolve(ctx, "range bookings", []officeapi.Candidate{
		officeapi.Get("/bookings" + q),
		officeapi.Get("/api/bookings" + q),
	}, officeapi.AcceptList)
	if err == nil {
		items, _ := officeapi.UnwrapList(res.Body)
		return &ListResponse{Bookings: decodeBookings(items), Endpoint: res.Endpoint}, nil
	}
	if !errors.Is(err, officeapi.ErrNotFound) {
		return nil, fmt.Errorf("bookings in range: %w", err)
	}

	bookings, err := s.rangeFromSpaces(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("bookings in range: %w", err)
	}
	return &ListResponse{Bookings: bookings}, nil
}

func (s *Service) rangeFromSpaces(ctx context.Context, start, end time.Time) ([]Booking, error) {
	spaces, err := s.spaces.List(ctx, space.Filter{})
	if err != nil {
		if fatal(err) {
			return nil, err
		}
		logger.LogWarn(ctx, "space list unavailable for range fallback", "error", err.Error())
		return []Booking{}, nil
	}

	found := make([][]Booking, len(spaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(availabilityFanOut)
	for i, sp := range spaces {
		if sp.RawID == "" {
			continue
		}
		g.Go(func() error {
			list, err := s.spaceBookings(gctx, sp, start, end)
			if err != nil {
				if fatal(err) {
					return err
				}
				return nil
			}
			found[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []Booking{}
	for _, list := range found {
		for _, b := range list {
			if b.Status.Active() {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *Service) spaceBookings(ctx context.Context, sp space.Space, start, end time.Time) ([]Booking, error) {
	id := url.PathEscape(sp.RawID)
	res, err := s.backend.Resolve(ctx, "space range availability", []officeapi.Candidate{
		officeapi.Get("/spaces/" + id + "/availability" + officeapi.Query(
			"start", start.UTC().Format(time.RFC3339),
			"end", end.UTC().Format(time.RFC3339),
		)),
		officeapi.Get("/spaces/" + id + "/availability" + officeapi.Query(
			"date", start.In(s.loc).Format(dateLayout),
		)),
	}, officeapi.AcceptSuccess)
	if err != nil {
		return nil, err
	}

	spaceJSON, err := json.Marshal(sp)
	if err != nil {
		return nil, err
	}

	var out []Booking
	for _, b := range decodeBookings(availabilityBookings(res.Body)) {
		if !b.Overlaps(start, end) {
			continue
		}
		if len(b.Space) == 0 {
			b.Space = spaceJSON
		}
		if b.SpaceID == "" {
			b.SpaceID = sp.RawID
		}
		out = append(out, b)
	}
	return out, nil
}

// availabilityBookings reads the bookings of an availability document,
// given either as {bookings: [...]} or as a bare array.
func availabilityBookings(body []byte) []json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if body[0] == '[' {
		items, _ := officeapi.UnwrapList(body)
		return items
	}

	var doc struct {
		Bookings []json.RawMessage `json:"bookings"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	return doc.Bookings
}

// CountForMonth counts the bookings of a calendar month. Stats routes are
// preferred; without one the month is listed and counted.
func (s *Service) CountForMonth(ctx context.Context, year, month int) (*CountResponse, error) {
	ym := fmt.Sprintf("%04d-%02d", year, month)
	y, m := strconv.Itoa(year), strconv.Itoa(month)

	candidates := []officeapi.Candidate{
		officeapi.Get("/stats/bookings/monthly" + officeapi.Query("month", ym)),
		officeapi.Get("/api/stats/bookings/monthly" + officeapi.Query("month", ym)),
		officeapi.Get("/bookings/stats/monthly" + officeapi.Query("month", ym)),
		officeapi.Get("/api/bookings/stats/monthly" + officeapi.Query("month", ym)),
		officeapi.Get("/bookings/count" + officeapi.Query("month", ym)),
		officeapi.Get("/api/bookings/count" + officeapi.Query("month", ym)),
		officeapi.Get("/stats/bookings" + officeapi.Query("year", y, "month", m)),
		officeapi.Get("/api/stats/bookings" + officeapi.Query("year", y, "month", m)),
	}

	out := &CountResponse{Year: year, Month: month}

	res, err := s.backend.Resolve(ctx, "monthly count", candidates, func(resp *officeapi.Response) bool {
		if !resp.OK() {
			return false
		}
		_, ok := parseCount(resp.Body)
		return ok
	})
	if err == nil {
		out.Count, _ = parseCount(res.Body)
		out.Endpoint = res.Endpoint
		return out, nil
	}
	if !errors.Is(err, officeapi.ErrNotFound) {
		return nil, fmt.Errorf("monthly count: %w", err)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	end := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, int(999*time.Millisecond), s.loc)
	list, err := s.InRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("monthly count: %w", err)
	}
	out.Count = len(list.Bookings)
	return out, nil
}

// parseCount reads a bare number, a {count: n} object or an array.
func parseCount(body []byte) (int, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 0, false
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return 0, false
		}
		return len(list), true
	case '{':
		var obj struct {
			Count *float64 `json:"count"`
		}
		if err := json.Unmarshal(body, &obj); err != nil || obj.Count == nil {
			return 0, false
		}
		return int(*obj.Count), true
	}

	var n float64
	if err := json.Unmarshal(body, &n); err != nil {
		return 0, false
	}
	return int(n), true
}

func bookingBases(id string) []string {
	id = url.PathEscape(id)
	return []string{
		"/bookings/" + id,
		"/api/bookings/" + id,
		"/reservations/" + id,
		"/api/reservations/" + id,
	}
}

// decodeBookings decodes list items, skipping anything that is not a booking object.
func decodeBookings(items []json.RawMessage) []Booking {
	out := make([]Booking, 0, len(items))
	for _, item := range items {
		var b Booking
		if err := json.Unmarshal(item, &b); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// fatal reports errors that stop a fan-out: auth failures and an unreachable backend.
func fatal(err error) bool {
	if officeapi.IsAuthError(err) {
		return true
	}
	var transportErr *officeapi.TransportError
	return errors.As(err, &transportErr)
}
