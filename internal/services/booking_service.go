package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/metrics"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/storage"
	"github.com/vartikaresort/funpark-backend/pkg/validator"
)

var (
	// ErrAmountMismatch indicates a client amount that differs from the quote
	ErrAmountMismatch = errors.New("amount does not match the price for this booking")

	// ErrBookingNotFound indicates an unknown booking id
	ErrBookingNotFound = errors.New("booking not found")

	// ErrNotBookingOwner indicates a user acting on someone else's booking
	ErrNotBookingOwner = errors.New("booking belongs to another user")

	// ErrProofNotRequired indicates a proof submitted for a pay-later booking
	ErrProofNotRequired = errors.New("this booking does not take online payment")

	// ErrMissingTransactionID indicates an empty transaction id
	ErrMissingTransactionID = errors.New("transaction ID is required")

	// ErrEmptyUpdate indicates an update request with no fields
	ErrEmptyUpdate = errors.New("no fields to update")
)

// BookingService implements booking creation, payment proof, admin updates and stats
type BookingService struct {
	bookingRepo   *database.BookingRepository
	paymentRepo   *database.PaymentRepository
	userRepo      *database.UserRepository
	store         storage.Store
	auditService  *AuditService
	prices        models.PriceTable
	maxProofBytes int64
	logger        *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	userRepo *database.UserRepository,
	store storage.Store,
	auditService *AuditService,
	prices models.PriceTable,
	maxProofBytes int64,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:   bookingRepo,
		paymentRepo:   paymentRepo,
		userRepo:      userRepo,
		store:         store,
		auditService:  auditService,
		prices:        prices,
		maxProofBytes: maxProofBytes,
		logger:        logger,
	}
}

// Create validates and prices a booking, then stores it as pending with a
// pending payment record for its method.
func (s *BookingService) Create(userID uuid.UUID, req *models.CreateBookingRequest) (*models.CreatedBooking, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	phone, err := validator.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, invalid(fmt.Errorf("invalid phone number: %w", err))
	}

	amount, err := s.prices.Quote(req.BookingType, req.NumPeople)
	if err != nil {
		return nil, invalid(err)
	}
	// zero means the client left pricing to us
	if !req.Amount.IsZero() && !req.Amount.Equal(amount) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrAmountMismatch, amount.String(), req.Amount.String())
	}

	booking := &models.Booking{
		UserID:        userID,
		BookingType:   req.BookingType,
		BookingFor:    req.BookingFor,
		Date:          req.Date,
		Time:          req.Time,
		NumPeople:     req.NumPeople,
		Name:          strings.TrimSpace(req.Name),
		Email:         models.NormalizeEmail(req.Email),
		PhoneNumber:   phone,
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
		Message:       req.Message,
		BookingStatus: models.BookingStatusPending,
		Payment: models.RecordedPayment(models.PaymentRecord{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
			Amount: amount,
		}),
	}
	if req.BookingFor == models.BookingForOther {
		booking.OtherBookingFor = strings.TrimSpace(req.OtherBookingFor)
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	metrics.TrackBookingCreated(string(booking.BookingType), string(booking.PaymentMethod))
	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"user_id":        userID,
		"booking_type":   booking.BookingType,
		"payment_method": booking.PaymentMethod,
		"amount":         booking.Amount.String(),
	}).Info("Booking created")

	return &models.CreatedBooking{
		BookingID:     booking.ID,
		Amount:        booking.Amount,
		BookingStatus: booking.BookingStatus,
		PaymentMethod: booking.PaymentMethod,
		Payment:       booking.Payment,
	}, nil
}

// VerifyPayment attaches a Fonepay transaction id and screenshot to the
// caller's booking. The payment stays pending until an admin checks it.
func (s *BookingService) VerifyPayment(userID, bookingID uuid.UUID, transactionID string, screenshot []byte) (models.PaymentRecord, error) {
	booking, err := s.getBooking(bookingID)
	if err != nil {
		return models.PaymentRecord{}, err
	}

	if booking.UserID != userID {
		return models.PaymentRecord{}, ErrNotBookingOwner
	}
	if !booking.PaymentMethod.RequiresProof() {
		return models.PaymentRecord{}, ErrProofNotRequired
	}
	if booking.BookingStatus == models.BookingStatusCancelled {
		return models.PaymentRecord{}, models.ErrBookingCancelled
	}

	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return models.PaymentRecord{}, ErrMissingTransactionID
	}

	_, ext, err := storage.ValidateImage(screenshot, s.maxProofBytes)
	if err != nil {
		metrics.TrackPaymentProof("booking", false)
		return models.PaymentRecord{}, invalid(err)
	}

	ref, err := s.store.Save("payment", screenshot, ext)
	if err != nil {
		return models.PaymentRecord{}, err
	}

	record := models.PaymentRecord{
		Method:        models.PaymentMethodFonepay,
		Status:        models.PaymentStatusPending,
		TransactionID: transactionID,
		ScreenshotRef: ref,
		Amount:        booking.Amount,
	}
	if err := s.paymentRepo.Upsert(booking.ID, record); err != nil {
		return models.PaymentRecord{}, err
	}

	metrics.TrackPaymentProof("booking", true)
	if err := s.auditService.LogPaymentProof(userID, booking.ID, transactionID, ref); err != nil {
		s.logger.WithError(err).Warn("Failed to write audit log")
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"transaction_id": transactionID,
	}).Info("Payment proof recorded")

	return record, nil
}

// Update applies an admin's partial edit to a booking. A payment status in the
// request is written to the booking's payment record.
func (s *BookingService) Update(adminID, bookingID uuid.UUID, req *models.UpdateBookingRequest, client ClientInfo) (*models.Booking, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	booking, err := s.getBooking(bookingID)
	if err != nil {
		return nil, err
	}

	previous := booking.BookingStatus
	previousPayment := booking.Payment.StatusLabel()
	if err := req.Apply(booking); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(booking); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.PaymentStatus != nil && string(*req.PaymentStatus) != previousPayment {
		if err := s.paymentRepo.UpdateStatus(booking.ID, *req.PaymentStatus); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, models.ErrNoPaymentRecorded
			}
			return nil, err
		}
		changes["from_payment_status"] = previousPayment
		changes["to_payment_status"] = *req.PaymentStatus
		metrics.TrackPaymentReviewed(string(*req.PaymentStatus))
	}
	if booking.BookingStatus != previous {
		changes["from_status"] = previous
		changes["to_status"] = booking.BookingStatus
		metrics.TrackStatusChange(string(booking.BookingStatus))
	}
	if req.ExtendedStayDays != nil {
		changes["extended_stay_days"] = *req.ExtendedStayDays
		changes["date"] = booking.Date
	}
	if err := s.auditService.LogBookingUpdate(adminID, booking.ID, changes, client); err != nil {
		s.logger.WithError(err).Warn("Failed to write audit log")
	}

	return booking, nil
}

// ListAll returns every booking, newest first
func (s *BookingService) ListAll() ([]models.Booking, error) {
	return s.bookingRepo.List()
}

// ListMine returns the caller's bookings, newest first
func (s *BookingService) ListMine(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookingRepo.ListByUser(userID)
}

// Stats returns the admin dashboard counters
func (s *BookingService) Stats() (*models.DashboardStats, error) {
	users, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	pending, err := s.bookingRepo.CountByStatus(models.BookingStatusPending)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.bookingRepo.CountByStatus(models.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	metrics.SetBookingCount(string(models.BookingStatusPending), pending)
	metrics.SetBookingCount(string(models.BookingStatusConfirmed), confirmed)

	return &models.DashboardStats{
		TotalUsers:             users,
		TotalPendingBookings:   pending,
		TotalConfirmedBookings: confirmed,
	}, nil
}

func (s *BookingService) getBooking(id uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return booking, err
}
