package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/config"
	"github.com/vartikaresort/funpark-backend/internal/flows"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

const usage = `resortctl talks to the Vartika Funpark booking API.

Usage:
  resortctl login -email <email> -password <password>
  resortctl register -name <name> -email <email> -phone <phone> -password <password>
  resortctl logout
  resortctl whoami
  resortctl book -type room|table|ticket -people N -date YYYY-MM-DD -time HH:MM -for business|family|other [-other text] [-pay payLater|fonepay -tx ID -screenshot FILE]
  resortctl my-bookings
  resortctl membership plans
  resortctl membership buy -plan monthly|quarterly|yearly|lifetime -tx ID -screenshot FILE
  resortctl admin list [-status all|pending|confirmed|cancelled]
  resortctl admin confirm <booking-id> [-yes]
  resortctl admin extend <booking-id> -days N [-accumulate]
  resortctl admin payment <booking-id> verified|rejected|pending
  resortctl password reset -email <email>
  resortctl password change
  resortctl stats [-watch]

Environment:
  RESORT_API_URL          API base URL (default http://localhost:8080)
  RESORT_SESSION_FILE     where the login is kept (default ~/.resortctl/session.json)
  RESORT_TIMEOUT_SECONDS  per-request timeout (default 15)
`

// app holds what every command needs
type app struct {
	cfg       *config.ClientConfig
	logger    *logrus.Logger
	session   *flows.Session
	api       *client.Client
	validator *flows.FormValidator
	out       io.Writer
	in        *bufio.Reader
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadClient()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	session, err := flows.NewSession(flows.NewFileStore(cfg.SessionFile))
	if err != nil {
		logger.Fatalf("Failed to load session: %v", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		session: session,
		api: client.New(cfg.APIURL,
			client.WithTimeout(cfg.Timeout),
			client.WithTokenSource(session),
			client.WithLogger(logger),
		),
		validator: flows.NewFormValidator(),
		out:       os.Stdout,
		in:        bufio.NewReader(os.Stdin),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		stop()
		os.Exit(a.report(err))
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "book":
		return a.book(ctx, args)
	case "my-bookings":
		return a.myBookings(ctx)
	case "membership":
		return a.membership(ctx, args)
	case "admin":
		return a.admin(ctx, args)
	case "password":
		return a.password(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return errUsage
}

var errUsage = errors.New("unknown command")

// report prints err for a person and returns the exit code
func (a *app) report(err error) int {
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	switch {
	case client.IsKind(err, client.KindAuthRequired) && !a.session.IsAuthenticated():
		fmt.Fprintln(os.Stderr, "Please log in first: resortctl login -email <email> -password <password>")
	case client.IsKind(err, client.KindAuthRequired) && a.session.Role() != models.RoleAdmin:
		fmt.Fprintln(os.Stderr, "This command needs an admin account.")
	default:
		fmt.Fprintln(os.Stderr, "Error:", client.UserMessage(err, err.Error()))
	}

	for _, fe := range flows.FieldErrorsOf(err) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", fe.Field, fe.Message)
	}
	a.logger.WithError(err).WithField("kind", client.KindOf(err).String()).Debug("Command failed")
	return 1
}
