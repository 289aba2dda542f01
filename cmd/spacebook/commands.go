package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spacebook/spacebook-api/internal/domain/booking"
	"github.com/spacebook/spacebook-api/internal/domain/session"
	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/validator"
)

const timeLayout = "2006-01-02 15:04"

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// oneArg parses fs and requires exactly one positional argument.
func oneArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 {
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func fieldErrors(errs map[string]string) error {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	secret, err := readSecret(a.in, a.errOut, *password)
	if err != nil {
		return err
	}
	req := session.LoginRequest{Email: *email, Password: secret}
	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	token, user, err := a.sessions.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := a.tokens.Set(token); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", displayName(*user), user.Role)
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// cmdWhoami verifies the stored token. A token the backend rejects is removed.
func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	token := a.tokens.Token(ctx)
	if token == "" {
		return session.ErrNotAuthenticated
	}

	user, err := a.sessions.Verify(ctx, token)
	if officeapi.IsAuthError(err) {
		if clearErr := a.tokens.Clear(); clearErr != nil {
			return clearErr
		}
		return fmt.Errorf("session expired, please log in again: %w", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s <%s> id=%s role=%s\n", displayName(*user), user.Email, user.ID, user.Role)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	req := session.RegisterRequest{}
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.Password, "password", "", "password (read from stdin when empty)")
	fs.StringVar(&req.Role, "role", "", "employee or admin")
	fs.StringVar(&req.AvatarURL, "avatar-url", "", "avatar image URL")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	secret, err := readSecret(a.in, a.errOut, req.Password)
	if err != nil {
		return err
	}
	req.Password = secret
	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	user, err := a.sessions.Register(ctx, &req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s as %s\n", user.Email, user.Role)
	return nil
}

func cmdSpaces(ctx context.Context, a *app, args []string) error {
	fs := newFlags("spaces")
	f := space.Filter{}
	fs.StringVar(&f.Type, "type", "", "desk, meeting_room, office, ...")
	fs.StringVar(&f.Activity, "activity", "", "activity filter")
	fs.StringVar(&f.Query, "q", "", "search text")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if errs := validator.Validate(&f); errs != nil {
		return fieldErrors(errs)
	}

	spaces, err := a.spaces.List(ctx, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMAP ID\tTYPE\tNAME\tCAPACITY")
	for _, s := range spaces {
		capacity := "-"
		if s.Capacity != nil {
			capacity = strconv.Itoa(*s.Capacity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.RawID, s.UIMapID, s.UIType, s.Name, capacity)
	}
	return tw.Flush()
}

func cmdResolve(ctx context.Context, a *app, args []string) error {
	key, err := oneArg(newFlags("resolve"), args)
	if err != nil {
		return err
	}
	id, err := a.spaces.ResolveID(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func cmdAvailability(ctx context.Context, a *app, args []string) error {
	fs := newFlags("availability")
	date := fs.String("date", a.now().In(a.loc).Format("2006-01-02"), "day to check")
	raw, err := oneArg(fs, args)
	if err != nil {
		return err
	}

	id, err := a.spaces.ResolveID(ctx, raw)
	if err != nil {
		return err
	}
	req := space.AvailabilityRequest{Date: *date}
	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	doc, err := a.spaces.Availability(ctx, id, req.Date)
	if err != nil {
		return err
	}
	return printJSON(a.out, doc)
}

func cmdBook(ctx context.Context, a *app, args []string) error {
	fs := newFlags("book")
	var req booking.CreateRequest
	spaceID := fs.String("space", "", "space id or map id (desk3)")
	fs.StringVar(&req.SpaceType, "type", "", "space type, must match the space")
	fs.StringVar(&req.Title, "title", "", "booking title")
	fs.StringVar(&req.StartDate, "start-date", "", "first desk day, YYYY-MM-DD")
	fs.StringVar(&req.EndDate, "end-date", "", "last desk day, YYYY-MM-DD")
	fs.StringVar(&req.Start, "start", "", "start, YYYY-MM-DDTHH:MM")
	fs.StringVar(&req.End, "end", "", "end, YYYY-MM-DDTHH:MM")
	attendees := fs.Int("attendees", 1, "number of people")
	fs.StringVar(&req.Notes, "notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	req.SpaceID = booking.FlexString(*spaceID)
	req.Attendees = attendees

	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	res, err := a.bookings.Create(ctx, req)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(a.out, "Warning:", res.Warning)
	}
	if res.Booking != nil && res.Booking.ID != "" {
		fmt.Fprintf(a.out, "Booked space %d: booking %s (%s)\n", res.SpaceID, res.Booking.ID, res.Booking.Status)
	} else {
		fmt.Fprintf(a.out, "Booked space %d\n", res.SpaceID)
	}
	return nil
}

func cmdMine(ctx context.Context, a *app, args []string) error {
	fs := newFlags("mine")
	all := fs.Bool("all", false, "include cancelled bookings")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	res, err := a.bookings.Mine(ctx, *all)
	if err != nil {
		return err
	}
	return a.printBookings(res.Bookings)
}

func cmdCancel(ctx context.Context, a *app, args []string) error {
	return a.act(ctx, "cancel", args, a.bookings.Cancel)
}

func cmdApprove(ctx context.Context, a *app, args []string) error {
	return a.act(ctx, "approve", args, a.bookings.Approve)
}

func cmdReject(ctx context.Context, a *app, args []string) error {
	return a.act(ctx, "reject", args, a.bookings.Reject)
}

func (a *app) act(ctx context.Context, name string, args []string, action func(context.Context, string, booking.Status) (*booking.ActionResponse, error)) error {
	fs := newFlags(name)
	status := fs.String("status", "", "current status, when known")
	id, err := oneArg(fs, args)
	if err != nil {
		return err
	}

	var known booking.Status
	if *status != "" {
		known = booking.ParseStatus(*status)
	}
	res, err := action(ctx, id, known)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Booking %s %s via %s\n", res.ID, res.Status, res.Endpoint)
	return nil
}

func cmdPending(ctx context.Context, a *app, args []string) error {
	if err := newFlags("pending").Parse(args); err != nil {
		return errUsage
	}
	res, err := a.bookings.Pending(ctx)
	if err != nil {
		return err
	}
	return a.printBookings(res.Bookings)
}

func cmdDay(ctx context.Context, a *app, args []string) error {
	fs := newFlags("day")
	date := fs.String("date", a.now().In(a.loc).Format("2006-01-02"), "day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	req := booking.DayRequest{Date: *date}
	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	res, err := a.bookings.On(ctx, req.Date)
	if err != nil {
		return err
	}
	return a.printBookings(res.Bookings)
}

func cmdRange(ctx context.Context, a *app, args []string) error {
	fs := newFlags("range")
	startRaw := fs.String("start", "", "start, RFC 3339 or YYYY-MM-DD")
	endRaw := fs.String("end", "", "end, RFC 3339 or YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	start, ok := booking.ParseBound(*startRaw, a.loc, false)
	if !ok {
		return fmt.Errorf("invalid -start %q", *startRaw)
	}
	end, ok := booking.ParseBound(*endRaw, a.loc, true)
	if !ok {
		return fmt.Errorf("invalid -end %q", *endRaw)
	}
	if end.Before(start) {
		return errors.New("-end must not be before -start")
	}

	res, err := a.bookings.InRange(ctx, start, end)
	if err != nil {
		return err
	}
	return a.printBookings(res.Bookings)
}

func cmdMonth(ctx context.Context, a *app, args []string) error {
	now := a.now().In(a.loc)
	fs := newFlags("month")
	req := booking.MonthRequest{}
	fs.IntVar(&req.Year, "year", now.Year(), "year")
	fs.IntVar(&req.Month, "month", int(now.Month()), "month, 1-12")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if errs := validator.Validate(&req); errs != nil {
		return fieldErrors(errs)
	}

	res, err := a.bookings.CountForMonth(ctx, req.Year, req.Month)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%04d-%02d: %d bookings\n", res.Year, res.Month, res.Count)
	return nil
}

func (a *app) printBookings(bookings []booking.Booking) error {
	if len(bookings) == 0 {
		fmt.Fprintln(a.out, "No bookings")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSPACE\tTITLE\tSTART\tEND")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Status, b.SpaceID, b.Title, a.clock(b.Start), a.clock(b.End))
	}
	return tw.Flush()
}

func (a *app) clock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(a.loc).Format(timeLayout)
}

func displayName(u session.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Email != "" {
		return u.Email
	}
	return "user " + u.ID
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
