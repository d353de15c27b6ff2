package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/flows"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

func (a *app) accounts() *flows.AccountFlows {
	return flows.NewAccountFlows(a.api, a.session, a.validator)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	route, err := a.accounts().Login(ctx, flows.LoginForm{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	user, _ := a.session.User()
	fmt.Fprintf(a.out, "Logged in as %s (%s). Landing page: %s\n", user.Name, user.Role, route)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	var form flows.RegisterForm
	fs.StringVar(&form.Name, "name", "", "full name")
	fs.StringVar(&form.Email, "email", "", "email")
	fs.StringVar(&form.Phone, "phone", "", "phone number")
	fs.StringVar(&form.Gender, "gender", "", "gender")
	fs.StringVar(&form.DOB, "dob", "", "date of birth, YYYY-MM-DD")
	fs.StringVar(&form.Address, "address", "", "address")
	fs.StringVar(&form.Password, "password", "", "password")
	_ = fs.Parse(args)
	form.ConfirmPassword = form.Password

	route, err := a.accounts().Register(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created. Landing page: %s\n", route)
	return nil
}

func (a *app) logout() error {
	if err := a.accounts().Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) whoami() error {
	user, ok := a.session.User()
	if !a.session.IsAuthenticated() || !ok {
		return client.AuthRequiredError()
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s\n", user.Name, user.Email, user.Role)
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	bookingType := fs.String("type", "", "room, table or ticket")
	people := fs.String("people", "1", "number of people")
	date := fs.String("date", "", "date, YYYY-MM-DD")
	tm := fs.String("time", "", "time, HH:MM")
	purpose := fs.String("for", "", "business, family or other")
	other := fs.String("other", "", "purpose when -for other")
	message := fs.String("message", "", "message for the resort")
	pay := fs.String("pay", string(models.PaymentMethodPayLater), "payLater or fonepay")
	tx := fs.String("tx", "", "Fonepay transaction id")
	screenshot := fs.String("screenshot", "", "Fonepay screenshot file")
	_ = fs.Parse(args)

	flow := flows.NewBookingFlow(a.api, a.session, flows.BookingFlowConfig{
		Prices:             models.NewPriceTable(a.cfg.Pricing.Room, a.cfg.Pricing.Table, a.cfg.Pricing.Ticket),
		MaxScreenshotBytes: a.cfg.MaxScreenshotBytes,
		Validator:          a.validator,
		Logger:             a.logger,
	})
	if _, err := flow.Open(); err != nil {
		return err
	}
	defer flow.Cancel()

	_ = flow.EditDraft(func(d *flows.BookingDraft) {
		d.BookingType = models.BookingType(strings.ToLower(*bookingType))
		d.SetNumPeopleInput(*people)
		d.Date = *date
		d.Time = *tm
		d.BookingFor = models.BookingFor(strings.ToLower(*purpose))
		d.OtherBookingFor = *other
		d.Message = *message
	})
	if err := flow.Next(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Amount: %s %s\n", flow.State().Amount, a.cfg.Pricing.Currency)

	var data []byte
	var name string
	if *screenshot != "" {
		var err error
		if data, err = os.ReadFile(*screenshot); err != nil {
			return client.ValidationError("cannot read screenshot: " + err.Error())
		}
		name = filepath.Base(*screenshot)
	}
	_ = flow.EditPayment(func(p *flows.PaymentCapture) {
		p.Method = models.PaymentMethod(*pay)
		p.TransactionID = *tx
		p.Screenshot = data
		p.ScreenshotName = name
	})

	result, err := flow.Submit(ctx)
	if result != nil {
		fmt.Fprintf(a.out, "Booking %s created, status %s\n", result.Booking.BookingID, result.Booking.BookingStatus)
	}
	if err != nil {
		return err
	}
	if result.Payment != nil {
		fmt.Fprintf(a.out, "Payment proof recorded, status %s\n", result.Payment.Status)
	}
	return nil
}

func (a *app) myBookings(ctx context.Context) error {
	bookings, err := a.api.MyBookings(ctx)
	if err != nil {
		return err
	}
	a.printBookings(bookings)
	return nil
}

func (a *app) membership(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	flow := flows.NewMembershipFlow(a.api, a.session, flows.MembershipFlowConfig{
		Plans: models.NewMembershipPlans(
			a.cfg.Membership.Monthly, a.cfg.Membership.Quarterly,
			a.cfg.Membership.Yearly, a.cfg.Membership.Lifetime,
		),
		MaxScreenshotBytes: a.cfg.MaxScreenshotBytes,
		Logger:             a.logger,
	})

	switch args[0] {
	case "plans":
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PLAN\tAMOUNT\tPERIOD\tBENEFITS")
		for _, p := range flow.Plans() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Tier, p.Amount, p.Period, strings.Join(p.Benefits, ", "))
		}
		return w.Flush()

	case "buy":
		fs := flag.NewFlagSet("membership buy", flag.ExitOnError)
		plan := fs.String("plan", "", "monthly, quarterly, yearly or lifetime")
		tx := fs.String("tx", "", "Fonepay transaction id")
		screenshot := fs.String("screenshot", "", "Fonepay screenshot file")
		_ = fs.Parse(args[1:])

		tier, err := models.ParseMembershipTier(*plan)
		if err != nil {
			return client.ValidationError(err.Error())
		}
		if _, err := flow.SelectPlan(tier); err != nil {
			return err
		}
		data, err := os.ReadFile(*screenshot)
		if err != nil {
			return client.ValidationError("cannot read screenshot: " + err.Error())
		}
		if err := flow.SetProof(*tx, data, filepath.Base(*screenshot)); err != nil {
			return err
		}
		purchase, err := flow.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Membership %s submitted, status %s\n", purchase.PlanType, purchase.Status)
		return nil
	}
	return errUsage
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("admin list", flag.ExitOnError)
		status := fs.String("status", "all", "all, pending, confirmed or cancelled")
		_ = fs.Parse(args[1:])

		filter, err := models.ParseBookingFilter(*status)
		if err != nil {
			return client.ValidationError(err.Error())
		}
		registry := a.registry(flows.AdminRegistryConfig{})
		if _, err := registry.Load(ctx); err != nil {
			return err
		}
		registry.SetFilter(filter)
		a.printBookings(registry.Visible())
		return nil

	case "confirm":
		id, rest, err := bookingID(args[1:])
		if err != nil {
			return err
		}
		fs := flag.NewFlagSet("admin confirm", flag.ExitOnError)
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		_ = fs.Parse(rest)

		confirmer := flows.Confirmer(flows.ConfirmFunc(a.ask))
		if *yes {
			confirmer = flows.AlwaysConfirm
		}
		registry := a.registry(flows.AdminRegistryConfig{Confirmer: confirmer})
		if _, err := registry.Load(ctx); err != nil {
			return err
		}
		updated, err := registry.Confirm(ctx, id)
		if err != nil {
			return err
		}
		if updated == nil {
			fmt.Fprintln(a.out, "Not confirmed.")
			return nil
		}
		fmt.Fprintf(a.out, "Booking %s is %s\n", updated.ID, updated.BookingStatus)
		return nil

	case "extend":
		id, rest, err := bookingID(args[1:])
		if err != nil {
			return err
		}
		fs := flag.NewFlagSet("admin extend", flag.ExitOnError)
		days := fs.Int("days", 0, "days to add")
		accumulate := fs.Bool("accumulate", false, "add to an earlier extension instead of replacing it")
		_ = fs.Parse(rest)

		var policy models.ExtensionPolicy = models.ReplaceExtension
		if *accumulate {
			policy = models.AccumulateExtension
		}
		registry := a.registry(flows.AdminRegistryConfig{ExtensionPolicy: policy})
		if _, err := registry.Load(ctx); err != nil {
			return err
		}
		updated, err := registry.ExtendStay(ctx, id, *days)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Booking %s now ends %s (extended %d days)\n", updated.ID, updated.Date, derefInt(updated.ExtendedStayDays))
		return nil

	case "payment":
		id, rest, err := bookingID(args[1:])
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return errUsage
		}
		registry := a.registry(flows.AdminRegistryConfig{})
		if _, err := registry.Load(ctx); err != nil {
			return err
		}
		updated, err := registry.SetPaymentStatus(ctx, id, models.PaymentStatus(rest[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Payment for booking %s is %s\n", updated.ID, updated.Payment.StatusLabel())
		return nil
	}
	return errUsage
}

func (a *app) registry(cfg flows.AdminRegistryConfig) *flows.AdminRegistry {
	cfg.Validator = a.validator
	cfg.Logger = a.logger
	return flows.NewAdminRegistry(a.api, a.session, cfg)
}

func (a *app) password(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "reset":
		fs := flag.NewFlagSet("password reset", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		_ = fs.Parse(args[1:])

		flow := a.accounts().NewPasswordResetFlow()
		if err := flow.RequestOTP(ctx, *email); err != nil {
			return err
		}
		if otp := flow.DevOTP(); otp != "" {
			fmt.Fprintf(a.out, "Development OTP: %s\n", otp)
		}
		if err := flow.VerifyOTP(ctx, a.prompt("OTP: ")); err != nil {
			return err
		}
		if err := flow.SetPassword(ctx, a.prompt("New password: "), a.prompt("Confirm password: ")); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password reset. You can log in now.")
		return nil

	case "change":
		flow := a.accounts().NewPasswordChangeFlow()
		if err := flow.RequestOTP(ctx, a.prompt("Current password: ")); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "OTP sent to %s\n", flow.SentTo())
		if otp := flow.DevOTP(); otp != "" {
			fmt.Fprintf(a.out, "Development OTP: %s\n", otp)
		}
		otp := a.prompt("OTP: ")
		if err := flow.Submit(ctx, otp, a.prompt("New password: "), a.prompt("Confirm password: ")); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password changed.")
		return nil
	}
	return errUsage
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep polling until interrupted")
	interval := fs.Duration("interval", flows.DefaultPollInterval, "poll interval with -watch")
	_ = fs.Parse(args)

	if access := flows.NewGuard(a.session).Check(models.RoleAdmin); !access.Allowed {
		return client.AuthRequiredError()
	}

	show := func(s flows.FeedSnapshot) {
		if s.Err != nil {
			fmt.Fprintf(a.out, "[%s] refresh failed: %s\n", time.Now().Format(time.Kitchen), client.UserMessage(s.Err, "Failed to fetch stats"))
			return
		}
		fmt.Fprintf(a.out, "[%s] users=%d pending=%d confirmed=%d unseen-messages=%d\n",
			s.UpdatedAt.Format(time.Kitchen), s.Stats.TotalUsers, s.Stats.TotalPendingBookings,
			s.Stats.TotalConfirmedBookings, s.Unseen)
	}

	if !*watch {
		snap := flows.NewPoller(a.api, *interval, nil, a.logger).PollOnce(ctx)
		if snap.Err != nil {
			return snap.Err
		}
		show(snap)
		return nil
	}

	poller := flows.NewPoller(a.api, *interval, show, a.logger)
	stop := poller.Start(ctx)
	<-ctx.Done()
	stop()
	return nil
}

func (a *app) ask(_ context.Context, question string) (bool, error) {
	answer := strings.ToLower(a.prompt(question + " [y/N] "))
	return answer == "y" || answer == "yes", nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) printBookings(bookings []models.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(a.out, "No bookings.")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tDATE\tTIME\tPEOPLE\tNAME\tAMOUNT\tPAYMENT\tSTATUS")
	for _, b := range bookings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			b.ID, b.BookingType, b.Date, b.Time, b.NumPeople, b.Name, b.Amount,
			b.Payment.StatusLabel(), b.BookingStatus)
	}
	_ = w.Flush()
}

func bookingID(args []string) (uuid.UUID, []string, error) {
	if len(args) == 0 {
		return uuid.Nil, nil, client.ValidationError("booking id is required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, nil, client.ValidationError("invalid booking id: " + args[0])
	}
	return id, args[1:], nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
