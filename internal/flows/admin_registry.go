package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// Banner fallbacks per command
const (
	msgFetchFailed   = "Failed to fetch bookings"
	msgUpdateFailed  = "Update failed"
	msgConfirmFailed = "Confirmation failed"
	msgExtendFailed  = "Failed to extend stay"
	msgStatusFailed  = "Failed to update payment"
)

var (
	// ErrBookingNotListed indicates an id missing from the fetched list
	ErrBookingNotListed = errors.New("booking is not in the list")

	// ErrCommandInFlight indicates a second command for the same booking
	ErrCommandInFlight = errors.New("another command for this booking is in progress")
)

// AdminAPI is the part of the API the registry calls
type AdminAPI interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	UpdateBooking(ctx context.Context, id uuid.UUID, req models.UpdateBookingRequest) (*models.Booking, error)
}

// Confirmer asks the admin a yes/no question before a status change
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls fn
func (fn ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return fn(ctx, prompt)
}

// AlwaysConfirm answers yes without asking
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// EditForm holds the mutable fields of a booking
type EditForm struct {
	Name          string               `json:"name" validate:"required"`
	Email         string               `json:"email" validate:"required,email"`
	Date          string               `json:"date" validate:"required,booking_date"`
	Time          string               `json:"time" validate:"required,booking_time"`
	BookingStatus models.BookingStatus `json:"bookingStatus" validate:"required,oneof=pending confirmed cancelled"`
	Notes         string               `json:"notes"`
}

// Request is the full-record PUT body for the form
func (e EditForm) Request() models.UpdateBookingRequest {
	name, email, date, tm, status, notes := e.Name, e.Email, e.Date, e.Time, e.BookingStatus, e.Notes
	return models.UpdateBookingRequest{
		Name:          &name,
		Email:         &email,
		Date:          &date,
		Time:          &tm,
		BookingStatus: &status,
		Notes:         &notes,
	}
}

// AdminRegistryConfig tunes an AdminRegistry; zero values take defaults
type AdminRegistryConfig struct {
	Confirmer       Confirmer
	ExtensionPolicy models.ExtensionPolicy
	Validator       *FormValidator
	Logger          logrus.FieldLogger
}

// AdminRegistry is the admin view over every booking. The list is
// fetched by Load and then only patched locally, by id, after the server
// accepts a command.
type AdminRegistry struct {
	api   AdminAPI
	guard *Guard
	cfg   AdminRegistryConfig

	mu       sync.Mutex
	bookings []models.Booking
	loaded   bool
	filter   models.BookingFilter
	inFlight map[uuid.UUID]bool
	banner   string
}

// NewAdminRegistry creates an empty registry
func NewAdminRegistry(api AdminAPI, session *Session, cfg AdminRegistryConfig) *AdminRegistry {
	if cfg.Confirmer == nil {
		cfg.Confirmer = AlwaysConfirm
	}
	if cfg.ExtensionPolicy == nil {
		cfg.ExtensionPolicy = models.ReplaceExtension
	}
	if cfg.Validator == nil {
		cfg.Validator = NewFormValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return &AdminRegistry{
		api:      api,
		guard:    NewGuard(session),
		cfg:      cfg,
		filter:   models.FilterAll,
		inFlight: make(map[uuid.UUID]bool),
	}
}

// Load fetches the whole list. A failure replaces the list with the
// error banner.
func (r *AdminRegistry) Load(ctx context.Context) (Access, error) {
	access := r.guard.Check(models.RoleAdmin)
	if !access.Allowed {
		return access, client.AuthRequiredError()
	}

	bookings, err := r.api.ListBookings(ctx, models.FilterAll)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.bookings = nil
		r.loaded = false
		r.banner = client.UserMessage(err, msgFetchFailed)
		return access, withFallback(err, msgFetchFailed)
	}

	r.bookings = bookings
	r.loaded = true
	r.banner = ""
	r.cfg.Logger.WithField("count", len(bookings)).Debug("Bookings loaded")
	return access, nil
}

// SetFilter changes the visible subset without fetching
func (r *AdminRegistry) SetFilter(filter models.BookingFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if filter == "" {
		filter = models.FilterAll
	}
	r.filter = filter
}

// Filter returns the current filter
func (r *AdminRegistry) Filter() models.BookingFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// Visible returns the fetched bookings selected by the filter
func (r *AdminRegistry) Visible() []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.FilterBookings(r.bookings, r.filter)
}

// All returns every fetched booking
func (r *AdminRegistry) All() []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Booking(nil), r.bookings...)
}

// Loaded reports whether the list was fetched successfully
func (r *AdminRegistry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Banner returns the page level error, or ""
func (r *AdminRegistry) Banner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.banner
}

// ClearBanner dismisses the page level error
func (r *AdminRegistry) ClearBanner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banner = ""
}

// View returns one booking from the list
func (r *AdminRegistry) View(id uuid.UUID) (models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return models.Booking{}, ErrBookingNotListed
	}
	return r.bookings[i], nil
}

// EditForm returns the form prefilled from the listed booking
func (r *AdminRegistry) EditForm(id uuid.UUID) (EditForm, error) {
	b, err := r.View(id)
	if err != nil {
		return EditForm{}, err
	}
	return EditForm{
		Name:          b.Name,
		Email:         b.Email,
		Date:          b.Date,
		Time:          b.Time,
		BookingStatus: b.BookingStatus,
		Notes:         b.Notes,
	}, nil
}

// Edit sends the whole form and, once accepted, replaces the listed booking
func (r *AdminRegistry) Edit(ctx context.Context, id uuid.UUID, form EditForm) (*models.Booking, error) {
	if err := r.cfg.Validator.Validate(form); err != nil {
		return nil, err
	}
	return r.run(ctx, id, msgUpdateFailed, func(models.Booking) (models.UpdateBookingRequest, error) {
		return form.Request(), nil
	})
}

// Confirm asks the Confirmer first and only then sets the status to
// confirmed. It returns nil, nil when the admin declines.
func (r *AdminRegistry) Confirm(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := r.View(id)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Confirm booking for %s on %s at %s?", b.Name, b.Date, b.Time)
	ok, err := r.cfg.Confirmer.Confirm(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return r.run(ctx, id, msgConfirmFailed, func(current models.Booking) (models.UpdateBookingRequest, error) {
		if err := current.BookingStatus.TransitionTo(models.BookingStatusConfirmed); err != nil {
			return models.UpdateBookingRequest{}, client.ValidationError(err.Error())
		}
		status := models.BookingStatusConfirmed
		return models.UpdateBookingRequest{BookingStatus: &status}, nil
	})
}

// ExtendStay moves the end date forward by days using the registry's
// extension policy
func (r *AdminRegistry) ExtendStay(ctx context.Context, id uuid.UUID, days int) (*models.Booking, error) {
	return r.run(ctx, id, msgExtendFailed, func(current models.Booking) (models.UpdateBookingRequest, error) {
		ext, err := models.ExtendStay(current, days, r.cfg.ExtensionPolicy)
		if err != nil {
			return models.UpdateBookingRequest{}, client.ValidationError(err.Error())
		}
		return ext.Request(), nil
	})
}

// SetPaymentStatus marks the booking's payment verified, rejected or back to
// pending. The payment rules are checked against the listed booking first.
func (r *AdminRegistry) SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Booking, error) {
	return r.run(ctx, id, msgStatusFailed, func(current models.Booking) (models.UpdateBookingRequest, error) {
		req := models.UpdateBookingRequest{PaymentStatus: &status}
		if err := req.Validate(); err != nil {
			return models.UpdateBookingRequest{}, client.ValidationError(err.Error())
		}
		if err := req.Apply(&current); err != nil {
			return models.UpdateBookingRequest{}, client.ValidationError(err.Error())
		}
		return req, nil
	})
}

// run executes one command for id: build the request from the listed
// booking, send it, and patch the list only on success
func (r *AdminRegistry) run(ctx context.Context, id uuid.UUID, fallback string, build func(models.Booking) (models.UpdateBookingRequest, error)) (*models.Booking, error) {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return nil, ErrBookingNotListed
	}
	if r.inFlight[id] {
		r.mu.Unlock()
		return nil, ErrCommandInFlight
	}
	current := r.bookings[i]
	req, err := build(current)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.inFlight[id] = true
	r.mu.Unlock()

	updated, err := r.api.UpdateBooking(ctx, id, req)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
	if err != nil {
		r.banner = client.UserMessage(err, fallback)
		r.cfg.Logger.WithError(err).WithField("booking_id", id).Debug("Booking command failed")
		return nil, withFallback(err, fallback)
	}

	if j := r.indexLocked(id); j >= 0 {
		r.bookings[j] = *updated
	}
	r.banner = ""
	r.cfg.Logger.WithFields(logrus.Fields{
		"booking_id": id,
		"status":     updated.BookingStatus,
	}).Debug("Booking updated")
	return updated, nil
}

func (r *AdminRegistry) indexLocked(id uuid.UUID) int {
	for i := range r.bookings {
		if r.bookings[i].ID == id {
			return i
		}
	}
	return -1
}
