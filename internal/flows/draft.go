package flows

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/storage"
)

// MaxScreenshotBytes is the largest payment screenshot accepted locally
const MaxScreenshotBytes int64 = 5 << 20

// BookingDraft is the details step of a booking that has not been submitted
type BookingDraft struct {
	BookingType     models.BookingType `json:"bookingType" validate:"required,oneof=room table ticket"`
	Name            string             `json:"name" validate:"required"`
	Email           string             `json:"email" validate:"required,email"`
	PhoneNumber     string             `json:"phoneNumber" validate:"required,mobile"`
	NumPeople       int                `json:"numPeople" validate:"min=1"`
	Date            string             `json:"date" validate:"required,booking_date"`
	Time            string             `json:"time" validate:"required,booking_time"`
	BookingFor      models.BookingFor  `json:"bookingFor" validate:"required,oneof=business family other"`
	OtherBookingFor string             `json:"otherBookingFor" validate:"required_if=BookingFor other"`
	Message         string             `json:"message"`

	prices models.PriceTable
}

// NewBookingDraft starts an empty draft priced from prices
func NewBookingDraft(prices models.PriceTable) *BookingDraft {
	if prices == nil {
		prices = models.DefaultPriceTable()
	}
	return &BookingDraft{NumPeople: 1, prices: prices}
}

// Prefill copies the contact snapshot from the user's profile
func (d *BookingDraft) Prefill(user models.User) {
	if d.Name == "" {
		d.Name = user.Name
	}
	if d.Email == "" {
		d.Email = user.Email
	}
	if d.PhoneNumber == "" {
		d.PhoneNumber = user.Phone
	}
}

// SetNumPeople sets the party size, clamping anything below 1 to 1
func (d *BookingDraft) SetNumPeople(n int) {
	if n < 1 {
		n = 1
	}
	d.NumPeople = n
}

// SetNumPeopleInput parses raw input; unparseable input becomes 1
func (d *BookingDraft) SetNumPeopleInput(raw string) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = 1
	}
	d.SetNumPeople(n)
}

// Amount is unitPrice(bookingType) * numPeople, recomputed on every call.
// It is zero while the type is unset.
func (d *BookingDraft) Amount() decimal.Decimal {
	amount, err := d.prices.Quote(d.BookingType, d.NumPeople)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Validate checks every details field without touching the network
func (d *BookingDraft) Validate(v *FormValidator) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.OtherBookingFor = strings.TrimSpace(d.OtherBookingFor)
	return v.Validate(d)
}

// Request builds the create-booking body for the chosen payment method
func (d *BookingDraft) Request(method models.PaymentMethod) models.CreateBookingRequest {
	req := models.CreateBookingRequest{
		BookingType:   d.BookingType,
		BookingFor:    d.BookingFor,
		Date:          d.Date,
		Time:          d.Time,
		NumPeople:     d.NumPeople,
		Name:          d.Name,
		Email:         d.Email,
		PhoneNumber:   d.PhoneNumber,
		Amount:        d.Amount(),
		PaymentMethod: method,
		Message:       d.Message,
	}
	if d.BookingFor == models.BookingForOther {
		req.OtherBookingFor = d.OtherBookingFor
	}
	return req
}

// PaymentCapture is the payment step: a method and, for Fonepay, the proof
type PaymentCapture struct {
	Method         models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=payLater fonepay"`
	TransactionID  string               `json:"transactionId" validate:"required_if=Method fonepay"`
	Screenshot     []byte               `json:"-"`
	ScreenshotName string               `json:"-"`
}

// RequiresProof reports whether the chosen method needs verify-payment
func (p *PaymentCapture) RequiresProof() bool {
	return p.Method.RequiresProof()
}

// Validate checks the method and, for Fonepay, the transaction id and an
// image screenshot no larger than maxBytes
func (p *PaymentCapture) Validate(v *FormValidator, maxBytes int64) error {
	if method, err := models.ParsePaymentMethod(string(p.Method)); err == nil {
		p.Method = method
	}
	p.TransactionID = strings.TrimSpace(p.TransactionID)

	if err := v.Validate(p); err != nil {
		return err
	}
	if !p.RequiresProof() {
		return nil
	}
	return validateScreenshot(p.Screenshot, maxBytes)
}

// Upload returns the screenshot as a multipart file
func (p *PaymentCapture) Upload() client.FileUpload {
	return client.FileUpload{Name: p.ScreenshotName, Data: p.Screenshot}
}

func validateScreenshot(data []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxScreenshotBytes
	}
	_, _, err := storage.ValidateImage(data, maxBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrEmptyFile):
		return client.ValidationError("screenshot is required")
	case errors.Is(err, storage.ErrFileTooLarge):
		return client.ValidationError("screenshot must be " + humanBytes(maxBytes) + " or smaller")
	case errors.Is(err, storage.ErrNotImage):
		return client.ValidationError("screenshot must be an image")
	}
	return &client.Error{Kind: client.KindValidation, Message: err.Error(), Err: err}
}

func humanBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return strconv.FormatInt(n>>20, 10) + "MB"
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return strconv.FormatInt(n>>10, 10) + "KB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
