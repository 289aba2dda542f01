// Command spacebook is a terminal client for the office booking backend.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/spacebook/spacebook-api/internal/config"
	"github.com/spacebook/spacebook-api/internal/domain/booking"
	"github.com/spacebook/spacebook-api/internal/domain/session"
	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// errUsage is returned after usage has been printed.
var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"login -email EMAIL [-password PASSWORD]", cmdLogin},
	"logout":       {"logout", cmdLogout},
	"whoami":       {"whoami", cmdWhoami},
	"register":     {"register -email EMAIL -name NAME [-password PASSWORD] [-role employee|admin]", cmdRegister},
	"spaces":       {"spaces [-type TYPE] [-activity A] [-q TEXT]", cmdSpaces},
	"resolve":      {"resolve KEY", cmdResolve},
	"availability": {"availability -date YYYY-MM-DD SPACE_ID", cmdAvailability},
	"book":         {"book -space ID (-start-date D -end-date D | -start T -end T) [-title T] [-attendees N] [-notes N]", cmdBook},
	"mine":         {"mine [-all]", cmdMine},
	"cancel":       {"cancel [-status STATUS] ID", cmdCancel},
	"pending":      {"pending", cmdPending},
	"approve":      {"approve [-status STATUS] ID", cmdApprove},
	"reject":       {"reject [-status STATUS] ID", cmdReject},
	"day":          {"day [-date YYYY-MM-DD]", cmdDay},
	"range":        {"range -start START -end END", cmdRange},
	"month":        {"month [-year YYYY] [-month M]", cmdMonth},
}

// app holds the services one CLI invocation works with.
type app struct {
	tokens   *officeapi.FileTokenStore
	sessions *session.Service
	spaces   *space.Service
	bookings *booking.Service
	loc      *time.Location
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	now      func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, config.Load(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("spacebook", flag.ContinueOnError)
	fs.SetOutput(errOut)
	backendURL := fs.String("backend", cfg.BackendURL, "backend base URL")
	tokenFile := fs.String("token-file", cfg.TokenFile, "where the access token is kept")
	debug := fs.Bool("debug", cfg.BackendDebug, "log every backend call")
	fs.Usage = func() { printUsage(errOut) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(errOut)
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n", rest[0])
		printUsage(errOut)
		return errUsage
	}

	setupLogger(errOut, *debug)

	tokens := officeapi.NewFileTokenStore(*tokenFile)
	client := officeapi.NewClient(officeapi.Config{
		BaseURL:   *backendURL,
		Timeout:   cfg.BackendTimeout(),
		UserAgent: cfg.BackendUserAgent,
		CacheBust: cfg.BackendCacheBust,
		Debug:     *debug,
	}, tokens)

	sessions := session.NewService(client, nil, cfg.SessionTTL, nil, nil)
	spaces := space.NewService(client, nil, 0, cfg.BrandedNames)
	loc := cfg.Location()

	a := &app{
		tokens:   tokens,
		sessions: sessions,
		spaces:   spaces,
		bookings: booking.NewService(client, spaces, cliViewer(sessions), loc),
		loc:      loc,
		in:       in,
		out:      out,
		errOut:   errOut,
		now:      time.Now,
	}

	err := cmd.run(ctx, a, rest[1:])
	if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
		fmt.Fprintln(errOut, "usage: spacebook", cmd.usage)
		return errUsage
	}
	return err
}

// cliViewer loads the profile once per invocation for my-bookings filtering.
func cliViewer(sessions *session.Service) booking.ViewerSource {
	return booking.ViewerFunc(func(ctx context.Context) (booking.Viewer, bool) {
		user, err := sessions.Me(ctx)
		if err != nil || user == nil {
			return booking.Viewer{}, false
		}
		return booking.Viewer{ID: user.ID, Email: user.Email}, true
	})
}

func setupLogger(w io.Writer, debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Logger()
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: spacebook [-backend URL] [-token-file PATH] [-debug] <command> [flags]")
	fmt.Fprintln(w, "\ncommands:")
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}

// readSecret returns value, or reads the password from in when value is
// empty. A terminal is read without echo; anything else is read up to the
// first newline.
func readSecret(in io.Reader, prompt io.Writer, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
