package flows

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

var (
	// ErrSubmitting indicates an action blocked by a submission in flight
	ErrSubmitting = errors.New("a submission is already in progress")

	// ErrFlowClosed indicates an action on a flow that is not open
	ErrFlowClosed = errors.New("flow is not open")

	// ErrWrongStep indicates an action not available on the current step
	ErrWrongStep = errors.New("action not available on this step")
)

// Fallback messages used when the server gives none
const (
	msgBookingFailed = "Booking failed"
	msgPaymentFailed = "Payment submission failed"
)

// BookingStep is the wizard position
type BookingStep int

const (
	StepDetails BookingStep = iota + 1
	StepPayment
	StepSuccess
)

func (s BookingStep) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepPayment:
		return "payment"
	case StepSuccess:
		return "success"
	}
	return "unknown"
}

// BookingAPI is the part of the API the booking wizard calls
type BookingAPI interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.CreatedBooking, error)
	VerifyPayment(ctx context.Context, bookingID uuid.UUID, transactionID string, screenshot client.FileUpload) (*models.VerifyPaymentResponse, error)
}

// BookingFlowConfig tunes a BookingFlow; zero values take defaults
type BookingFlowConfig struct {
	Prices             models.PriceTable
	MaxScreenshotBytes int64
	ResetDelay         time.Duration
	SuccessCloseDelay  time.Duration
	Validator          *FormValidator
	Logger             logrus.FieldLogger
}

func (c *BookingFlowConfig) setDefaults() {
	if c.Prices == nil {
		c.Prices = models.DefaultPriceTable()
	}
	if c.MaxScreenshotBytes <= 0 {
		c.MaxScreenshotBytes = MaxScreenshotBytes
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = 300 * time.Millisecond
	}
	if c.SuccessCloseDelay <= 0 {
		c.SuccessCloseDelay = 2 * time.Second
	}
	if c.Validator == nil {
		c.Validator = NewFormValidator()
	}
	if c.Logger == nil {
		c.Logger = discardLogger()
	}
}

// BookingResult is what a submission produced on the server
type BookingResult struct {
	Booking models.CreatedBooking
	// Payment is the recorded proof, set only for Fonepay
	Payment *models.PaymentRecord
}

// BookingFlowState is a snapshot of the wizard
type BookingFlowState struct {
	Open       bool
	Step       BookingStep
	Submitting bool
	Amount     decimal.Decimal
	Result     *BookingResult
	// Created is set once the booking exists on the server, even when its
	// payment proof still failed
	Created *models.CreatedBooking
}

// BookingFlow drives the two step booking wizard: details, then payment.
// Create and verify-payment run strictly in that order and at most one
// submission is in flight. Every action is safe for concurrent use.
type BookingFlow struct {
	api     BookingAPI
	session *Session
	guard   *Guard
	cfg     BookingFlowConfig

	mu         sync.Mutex
	open       bool
	step       BookingStep
	draft      *BookingDraft
	payment    PaymentCapture
	submitting bool
	cancel     context.CancelFunc
	created    *models.CreatedBooking
	result     *BookingResult
	generation uint64
	timer      *time.Timer
}

// NewBookingFlow creates a closed wizard
func NewBookingFlow(api BookingAPI, session *Session, cfg BookingFlowConfig) *BookingFlow {
	cfg.setDefaults()
	f := &BookingFlow{
		api:     api,
		session: session,
		guard:   NewGuard(session),
		cfg:     cfg,
	}
	f.resetLocked()
	return f
}

// Open starts the wizard at the details step with the contact fields
// prefilled. Without a token it returns the login redirect and
// an AuthRequired error, and nothing else happens.
func (f *BookingFlow) Open() (Access, error) {
	access := f.guard.Check()
	if !access.Allowed {
		return access, client.AuthRequiredError()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		return access, nil
	}

	f.stopTimerLocked()
	f.resetLocked()
	f.open = true
	f.generation++
	if user, ok := f.session.User(); ok {
		f.draft.Prefill(user)
	}
	f.cfg.Logger.Debug("Booking flow opened")
	return access, nil
}

// EditDraft changes the details step
func (f *BookingFlow) EditDraft(fn func(d *BookingDraft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(StepDetails); err != nil {
		return err
	}
	fn(f.draft)
	return nil
}

// EditPayment changes the payment step
func (f *BookingFlow) EditPayment(fn func(p *PaymentCapture)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(StepPayment); err != nil {
		return err
	}
	fn(&f.payment)
	return nil
}

// Next validates the details and moves to the payment step.
// It never calls the network.
func (f *BookingFlow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(StepDetails); err != nil {
		return err
	}
	if err := f.draft.Validate(f.cfg.Validator); err != nil {
		return err
	}

	f.step = StepPayment
	f.cfg.Logger.WithField("amount", f.draft.Amount().String()).Debug("Booking details accepted")
	return nil
}

// Back returns to the details step. Once the booking exists on the server
// its details are fixed and Back is refused.
func (f *BookingFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(StepPayment); err != nil {
		return err
	}
	if f.created != nil {
		return ErrWrongStep
	}
	f.step = StepDetails
	return nil
}

// Submit creates the booking and, for Fonepay, then records the payment
// proof. If the booking was created but the proof failed, the returned
// result is non-nil and the error has KindPartialCommit. Calling Submit
// again then retries only the proof.
func (f *BookingFlow) Submit(ctx context.Context) (*BookingResult, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, ErrFlowClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	if f.step != StepPayment {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	if err := f.payment.Validate(f.cfg.Validator, f.cfg.MaxScreenshotBytes); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if !f.session.IsAuthenticated() {
		f.mu.Unlock()
		return nil, client.AuthRequiredError()
	}

	payment := f.payment
	req := f.draft.Request(payment.Method)
	created := f.created
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.cancel = cancel
	f.submitting = true
	gen := f.generation
	f.mu.Unlock()

	if created == nil {
		booking, err := f.api.CreateBooking(ctx, req)
		if err != nil {
			return nil, f.finishFailed(gen, withFallback(err, msgBookingFailed))
		}
		created = booking

		f.mu.Lock()
		if f.generation == gen {
			f.created = booking
		}
		f.mu.Unlock()

		f.cfg.Logger.WithFields(logrus.Fields{
			"booking_id":     booking.BookingID,
			"payment_method": booking.PaymentMethod,
		}).Debug("Booking created")
	}

	result := &BookingResult{Booking: *created}
	if payment.RequiresProof() {
		resp, err := f.api.VerifyPayment(ctx, created.BookingID, payment.TransactionID, payment.Upload())
		if err != nil {
			return result, f.finishFailed(gen, partialCommit(err))
		}
		record := resp.Payment
		result.Payment = &record
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return result, &client.Error{Kind: client.KindCanceled, Message: "The booking window was closed"}
	}
	f.submitting = false
	f.cancel = nil
	f.step = StepSuccess
	f.result = result
	f.scheduleLocked(f.cfg.SuccessCloseDelay, f.closeAfterSuccess(gen))
	f.cfg.Logger.WithField("booking_id", created.BookingID).Debug("Booking flow succeeded")
	return result, nil
}

// Close hides the wizard and clears it after the reset delay. It is
// refused while a submission is in flight.
func (f *BookingFlow) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmitting
	}
	f.closeLocked()
	return nil
}

// Cancel aborts any submission in flight and closes the wizard. The
// aborted request's completion is ignored.
func (f *BookingFlow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.submitting = false
	f.closeLocked()
}

// State returns a snapshot of the wizard
func (f *BookingFlow) State() BookingFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return BookingFlowState{
		Open:       f.open,
		Step:       f.step,
		Submitting: f.submitting,
		Amount:     f.draft.Amount(),
		Result:     f.result,
		Created:    f.created,
	}
}

// Draft returns a copy of the details
func (f *BookingFlow) Draft() BookingDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.draft
}

// Payment returns a copy of the payment step
func (f *BookingFlow) Payment() PaymentCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payment
}

func (f *BookingFlow) editableLocked(step BookingStep) error {
	if !f.open {
		return ErrFlowClosed
	}
	if f.submitting {
		return ErrSubmitting
	}
	if f.step != step {
		return ErrWrongStep
	}
	return nil
}

func (f *BookingFlow) finishFailed(gen uint64, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation == gen {
		f.submitting = false
		f.cancel = nil
	}
	f.cfg.Logger.WithError(err).Debug("Booking submission failed")
	return err
}

func (f *BookingFlow) closeLocked() {
	if !f.open {
		return
	}
	f.open = false
	f.generation++
	gen := f.generation
	f.scheduleLocked(f.cfg.ResetDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation == gen && !f.open {
			f.resetLocked()
		}
	})
	f.cfg.Logger.Debug("Booking flow closed")
}

func (f *BookingFlow) closeAfterSuccess(gen uint64) func() {
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation == gen && f.open {
			f.closeLocked()
		}
	}
}

func (f *BookingFlow) resetLocked() {
	f.draft = NewBookingDraft(f.cfg.Prices)
	f.payment = PaymentCapture{}
	f.step = StepDetails
	f.submitting = false
	f.cancel = nil
	f.created = nil
	f.result = nil
}

func (f *BookingFlow) scheduleLocked(d time.Duration, fn func()) {
	f.stopTimerLocked()
	f.timer = time.AfterFunc(d, fn)
}

func (f *BookingFlow) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// withFallback keeps the kind of err and fixes its message to the server's
// text or fallback
func withFallback(err error, fallback string) error {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return &client.Error{Kind: client.KindServerFault, Message: fallback, Err: err}
	}
	return &client.Error{
		Kind:    apiErr.Kind,
		Status:  apiErr.Status,
		Code:    apiErr.Code,
		Message: client.UserMessage(err, fallback),
		Err:     err,
	}
}

func partialCommit(err error) error {
	var status int
	var code string
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		status = apiErr.Status
		code = apiErr.Code
	}
	return &client.Error{
		Kind:    client.KindPartialCommit,
		Status:  status,
		Code:    code,
		Message: "Your booking was created but the payment could not be verified: " + client.UserMessage(err, msgPaymentFailed),
		Err:     err,
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
