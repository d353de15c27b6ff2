package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what browsers and the CLI send.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout and TimeLayout are the wire formats of a booking's schedule
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ============================================================================
// BOOKING TYPES & STATUSES
// ============================================================================

// BookingType represents what is being reserved
type BookingType string

const (
	BookingTypeRoom   BookingType = "room"
	BookingTypeTable  BookingType = "table"
	BookingTypeTicket BookingType = "ticket"
)

// BookingTypes lists every bookable type in display order
var BookingTypes = []BookingType{BookingTypeRoom, BookingTypeTable, BookingTypeTicket}

// IsValid reports whether t is a known booking type
func (t BookingType) IsValid() bool {
	switch t {
	case BookingTypeRoom, BookingTypeTable, BookingTypeTicket:
		return true
	}
	return false
}

// BookingFor represents the purpose of a booking
type BookingFor string

const (
	BookingForBusiness BookingFor = "business"
	BookingForFamily   BookingFor = "family"
	BookingForOther    BookingFor = "other"
)

// IsValid reports whether f is a known purpose
func (f BookingFor) IsValid() bool {
	switch f {
	case BookingForBusiness, BookingForFamily, BookingForOther:
		return true
	}
	return false
}

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

var (
	// ErrInvalidTransition indicates a forbidden status change
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrInvalidExtension indicates a stay extension of less than one day
	ErrInvalidExtension = errors.New("stay extension must be at least 1 day")

	// ErrBookingCancelled indicates a mutation of a cancelled booking
	ErrBookingCancelled = errors.New("booking is cancelled")

	// ErrExtensionDateMismatch indicates an extension whose date does not
	// follow from the stored date and the added days
	ErrExtensionDateMismatch = errors.New("date does not match the stay extension")
)

// CanTransition reports whether a booking may move from one status to another.
// Status only moves forward: pending may become confirmed or cancelled and a
// confirmed booking may still be cancelled. Nothing leaves cancelled.
func CanTransition(from, to BookingStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case BookingStatusPending:
		return to == BookingStatusConfirmed || to == BookingStatusCancelled
	case BookingStatusConfirmed:
		return to == BookingStatusCancelled
	}
	return false
}

// TransitionTo validates a status change from s to target
func (s BookingStatus) TransitionTo(target BookingStatus) error {
	if !CanTransition(s, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, target)
	}
	return nil
}

// ============================================================================
// BOOKING
// ============================================================================

// Booking is a reservation of a room, a table or park tickets
type Booking struct {
	ID               uuid.UUID       `json:"_id"`
	UserID           uuid.UUID       `json:"userId"`
	BookingType      BookingType     `json:"bookingType"`
	BookingFor       BookingFor      `json:"bookingFor"`
	OtherBookingFor  string          `json:"otherBookingFor,omitempty"`
	Date             string          `json:"date"`
	Time             string          `json:"time"`
	ExtendedStayDays *int            `json:"extendedStayDays,omitempty"`
	NumPeople        int             `json:"numPeople"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	PhoneNumber      string          `json:"phoneNumber"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	Payment          Payment         `json:"payment"`
	Message          string          `json:"message,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	BookingStatus    BookingStatus   `json:"bookingStatus"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Purpose returns the human readable purpose, resolving "other" to its free text
func (b *Booking) Purpose() string {
	if b.BookingFor == BookingForOther && b.OtherBookingFor != "" {
		return b.OtherBookingFor
	}
	return string(b.BookingFor)
}

// CreateBookingRequest is the body of POST /bookApi/bookings.
// Amount is the price the client showed: the server always prices the booking
// itself and refuses a non-zero amount that differs. A zero or absent amount
// leaves the price to the server.
type CreateBookingRequest struct {
	BookingType     BookingType     `json:"bookingType" binding:"required"`
	BookingFor      BookingFor      `json:"bookingFor" binding:"required"`
	OtherBookingFor string          `json:"otherBookingFor,omitempty"`
	Date            string          `json:"date" binding:"required"`
	Time            string          `json:"time" binding:"required"`
	NumPeople       int             `json:"numPeople"`
	Name            string          `json:"name" binding:"required"`
	Email           string          `json:"email" binding:"required"`
	PhoneNumber     string          `json:"phoneNumber" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" binding:"required"`
	Message         string          `json:"message,omitempty"`
}

// Validate checks the request fields that binding tags cannot express
func (r *CreateBookingRequest) Validate() error {
	if !r.BookingType.IsValid() {
		return fmt.Errorf("invalid booking type: %s", r.BookingType)
	}
	if !r.BookingFor.IsValid() {
		return fmt.Errorf("invalid booking purpose: %s", r.BookingFor)
	}
	if r.BookingFor == BookingForOther && strings.TrimSpace(r.OtherBookingFor) == "" {
		return errors.New("please describe the purpose of the booking")
	}
	if r.NumPeople < 1 {
		return errors.New("number of people must be at least 1")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return errors.New("time must be in HH:MM format")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email address")
	}
	method, err := ParsePaymentMethod(string(r.PaymentMethod))
	if err != nil {
		return err
	}
	r.PaymentMethod = method
	if r.Amount.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	return nil
}

// CreatedBooking is the summary returned after a booking is created
type CreatedBooking struct {
	BookingID     uuid.UUID       `json:"bookingId"`
	Amount        decimal.Decimal `json:"amount"`
	BookingStatus BookingStatus   `json:"bookingStatus"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Payment       Payment         `json:"payment"`
}

// CreateBookingResponse is the response of POST /bookApi/bookings
type CreateBookingResponse struct {
	Message string         `json:"message"`
	Booking CreatedBooking `json:"booking"`
}

// UpdateBookingRequest is the body of PUT /bookApi/bookings/:id.
// Absent fields are left untouched.
type UpdateBookingRequest struct {
	Name             *string        `json:"name,omitempty"`
	Email            *string        `json:"email,omitempty"`
	Date             *string        `json:"date,omitempty"`
	Time             *string        `json:"time,omitempty"`
	BookingStatus    *BookingStatus `json:"bookingStatus,omitempty"`
	Notes            *string        `json:"notes,omitempty"`
	ExtendedStayDays *int           `json:"extendedStayDays,omitempty"`
	PaymentStatus    *PaymentStatus `json:"paymentStatus,omitempty"`
}

// IsEmpty reports whether the request changes nothing
func (r *UpdateBookingRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.Date == nil && r.Time == nil &&
		r.BookingStatus == nil && r.Notes == nil && r.ExtendedStayDays == nil &&
		r.PaymentStatus == nil
}

// Validate checks formats of the fields present in the request
func (r *UpdateBookingRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			return errors.New("invalid email address")
		}
	}
	if r.Date != nil {
		if _, err := time.Parse(DateLayout, *r.Date); err != nil {
			return errors.New("date must be in YYYY-MM-DD format")
		}
	}
	if r.Time != nil {
		if _, err := time.Parse(TimeLayout, *r.Time); err != nil {
			return errors.New("time must be in HH:MM format")
		}
	}
	if r.BookingStatus != nil && !r.BookingStatus.IsValid() {
		return fmt.Errorf("invalid booking status: %s", *r.BookingStatus)
	}
	if r.ExtendedStayDays != nil && *r.ExtendedStayDays < 1 {
		return ErrInvalidExtension
	}
	if r.PaymentStatus != nil && !r.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", *r.PaymentStatus)
	}
	return nil
}

// Apply mutates b with the fields present in the request. Status changes and
// stay extensions go through the lifecycle rules against b's current status.
// With extendedStayDays the end date is derived from b's stored date and any
// date in the request must agree with it.
func (r *UpdateBookingRequest) Apply(b *Booking) error {
	date := r.Date
	if r.ExtendedStayDays != nil {
		if b.BookingStatus == BookingStatusCancelled {
			return ErrBookingCancelled
		}
		extended, err := extendedDate(*b, *r.ExtendedStayDays, r.Date)
		if err != nil {
			return err
		}
		date = &extended
	}
	if r.BookingStatus != nil {
		if err := b.BookingStatus.TransitionTo(*r.BookingStatus); err != nil {
			return err
		}
	}
	var payment PaymentRecord
	if r.PaymentStatus != nil {
		var err error
		if payment, err = b.Payment.withStatus(*r.PaymentStatus); err != nil {
			return err
		}
		target := b.BookingStatus
		if r.BookingStatus != nil {
			target = *r.BookingStatus
		}
		if target == BookingStatusCancelled && *r.PaymentStatus == PaymentStatusVerified {
			return ErrBookingCancelled
		}
	}

	if r.Name != nil {
		b.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		b.Email = strings.TrimSpace(*r.Email)
	}
	if date != nil {
		b.Date = *date
	}
	if r.Time != nil {
		b.Time = *r.Time
	}
	if r.Notes != nil {
		b.Notes = *r.Notes
	}
	if r.ExtendedStayDays != nil {
		days := *r.ExtendedStayDays
		b.ExtendedStayDays = &days
	}
	if r.BookingStatus != nil {
		b.BookingStatus = *r.BookingStatus
	}
	if r.PaymentStatus != nil {
		b.Payment = RecordedPayment(payment)
	}
	return nil
}

// extendedDate returns the end date of b extended to days. The added days are
// days itself (a replacing extension) or, when b already has a shorter
// extension, the difference (an accumulating one). A requested date must
// match one of the two; without one the replacing reading is used.
func extendedDate(b Booking, days int, requested *string) (string, error) {
	if days < 1 {
		return "", ErrInvalidExtension
	}
	stored, err := time.Parse(DateLayout, b.Date)
	if err != nil {
		return "", fmt.Errorf("invalid booking date %q: %w", b.Date, err)
	}

	replaced := stored.AddDate(0, 0, days).Format(DateLayout)
	if requested == nil || *requested == replaced {
		return replaced, nil
	}
	if prior := b.ExtendedStayDays; prior != nil && days > *prior {
		if accumulated := stored.AddDate(0, 0, days-*prior).Format(DateLayout); *requested == accumulated {
			return accumulated, nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrExtensionDateMismatch, *requested)
}

// BookingFilter selects bookings by status; FilterAll keeps every booking
type BookingFilter string

const (
	FilterAll       BookingFilter = "all"
	FilterPending   BookingFilter = BookingFilter(BookingStatusPending)
	FilterConfirmed BookingFilter = BookingFilter(BookingStatusConfirmed)
	FilterCancelled BookingFilter = BookingFilter(BookingStatusCancelled)
)

// ParseBookingFilter parses a filter value; an empty string means all
func ParseBookingFilter(s string) (BookingFilter, error) {
	switch f := BookingFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterConfirmed, FilterCancelled:
		return f, nil
	}
	return "", fmt.Errorf("invalid filter: %s", s)
}

// Matches reports whether b is selected by the filter
func (f BookingFilter) Matches(b Booking) bool {
	return f == FilterAll || f == "" || BookingStatus(f) == b.BookingStatus
}

// FilterBookings returns the bookings selected by f, preserving order
func FilterBookings(bookings []Booking, f BookingFilter) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}
