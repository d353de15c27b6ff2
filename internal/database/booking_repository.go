package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// ErrNotFound is returned when an update or lookup matches no row
var ErrNotFound = errors.New("record not found")

// BookingRepository handles booking database operations
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	b.id, b.user_id, b.booking_type, b.booking_for, b.other_booking_for,
	b.date, b.time, b.extended_stay_days, b.num_people,
	b.name, b.email, b.phone_number, b.amount, b.payment_method,
	b.message, b.notes, b.booking_status, b.created_at, b.updated_at,
	p.method, p.status, p.transaction_id, p.screenshot_ref, p.amount
`

// Create inserts a booking together with its initial payment record.
// Both rows are written by a single statement so a booking never exists
// without the payment it was created with.
func (r *BookingRepository) Create(booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	record, ok := booking.Payment.Recorded()
	if !ok {
		record = models.PaymentRecord{
			Method: booking.PaymentMethod,
			Status: models.PaymentStatusPending,
			Amount: booking.Amount,
		}
		booking.Payment = models.RecordedPayment(record)
	}

	query := `
		WITH b AS (
			INSERT INTO bookings (
				id, user_id, booking_type, booking_for, other_booking_for,
				date, time, num_people, name, email, phone_number,
				amount, payment_method, message, booking_status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
			RETURNING id
		)
		INSERT INTO payments (booking_id, method, status, transaction_id, screenshot_ref, amount, created_at, updated_at)
		SELECT b.id, $17, $18, $19, $20, $21, $16, $16 FROM b
	`

	_, err := r.db.Exec(
		query,
		booking.ID, booking.UserID, booking.BookingType, booking.BookingFor, booking.OtherBookingFor,
		booking.Date, booking.Time, booking.NumPeople, booking.Name, booking.Email, booking.PhoneNumber,
		booking.Amount, booking.PaymentMethod, booking.Message, booking.BookingStatus,
		now,
		record.Method, record.Status, record.TransactionID, record.ScreenshotRef, record.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking with its payment
func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		LEFT JOIN payments p ON p.booking_id = b.id
		WHERE b.id = $1
	`

	booking, err := r.scanBooking(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// List retrieves every booking, newest first
func (r *BookingRepository) List() ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		LEFT JOIN payments p ON p.booking_id = b.id
		ORDER BY b.created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListByUser retrieves the bookings made by a user, newest first
func (r *BookingRepository) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		LEFT JOIN payments p ON p.booking_id = b.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bookings: %w", err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// Update writes the editable fields of a booking
func (r *BookingRepository) Update(booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET name = $2, email = $3, date = $4, time = $5,
			booking_status = $6, notes = $7, extended_stay_days = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	var extended sql.NullInt64
	if booking.ExtendedStayDays != nil {
		extended = sql.NullInt64{Int64: int64(*booking.ExtendedStayDays), Valid: true}
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.Name, booking.Email, booking.Date, booking.Time,
		booking.BookingStatus, booking.Notes, extended,
	).Scan(&booking.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

// CountByStatus counts bookings in the given status
func (r *BookingRepository) CountByStatus(status models.BookingStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE booking_status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// scanBooking scans a single booking joined with its payment
func (r *BookingRepository) scanBooking(row rowScanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var date time.Time
	var extended sql.NullInt64
	var payMethod, payStatus, payTxn, payScreenshot sql.NullString
	var payAmount decimal.NullDecimal

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.BookingType, &booking.BookingFor, &booking.OtherBookingFor,
		&date, &booking.Time, &extended, &booking.NumPeople,
		&booking.Name, &booking.Email, &booking.PhoneNumber, &booking.Amount, &booking.PaymentMethod,
		&booking.Message, &booking.Notes, &booking.BookingStatus, &booking.CreatedAt, &booking.UpdatedAt,
		&payMethod, &payStatus, &payTxn, &payScreenshot, &payAmount,
	)
	if err != nil {
		return nil, err
	}

	booking.Date = date.Format(models.DateLayout)
	if extended.Valid {
		days := int(extended.Int64)
		booking.ExtendedStayDays = &days
	}
	if payMethod.Valid {
		booking.Payment = models.RecordedPayment(models.PaymentRecord{
			Method:        models.PaymentMethod(payMethod.String),
			Status:        models.NormalizePaymentStatus(payStatus.String),
			TransactionID: payTxn.String,
			ScreenshotRef: payScreenshot.String,
			Amount:        payAmount.Decimal,
		})
	}

	return booking, nil
}

// scanBookings scans multiple bookings from rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
