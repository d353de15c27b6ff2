package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// PaymentRepository handles payment records attached to bookings
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Upsert records the payment of a booking, replacing any earlier record
func (r *PaymentRepository) Upsert(bookingID uuid.UUID, record models.PaymentRecord) error {
	query := `
		INSERT INTO payments (booking_id, method, status, transaction_id, screenshot_ref, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (booking_id) DO UPDATE
		SET method = EXCLUDED.method,
			status = EXCLUDED.status,
			transaction_id = EXCLUDED.transaction_id,
			screenshot_ref = EXCLUDED.screenshot_ref,
			amount = EXCLUDED.amount,
			updated_at = NOW()
	`

	_, err := r.db.Exec(query, bookingID, record.Method, record.Status, record.TransactionID, record.ScreenshotRef, record.Amount)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

// GetByBookingID returns the payment of a booking
func (r *PaymentRepository) GetByBookingID(bookingID uuid.UUID) (models.Payment, error) {
	query := `
		SELECT method, status, transaction_id, screenshot_ref, amount
		FROM payments
		WHERE booking_id = $1
	`

	var record models.PaymentRecord
	var status string
	err := r.db.QueryRow(query, bookingID).Scan(
		&record.Method, &status, &record.TransactionID, &record.ScreenshotRef, &record.Amount,
	)
	if err == sql.ErrNoRows {
		return models.NotRecordedPayment(), nil
	}
	if err != nil {
		return models.NotRecordedPayment(), fmt.Errorf("failed to get payment: %w", err)
	}

	record.Status = models.NormalizePaymentStatus(status)
	return models.RecordedPayment(record), nil
}

// UpdateStatus changes the verification state of a booking's payment
func (r *PaymentRepository) UpdateStatus(bookingID uuid.UUID, status models.PaymentStatus) error {
	result, err := r.db.Exec(`UPDATE payments SET status = $2, updated_at = NOW() WHERE booking_id = $1`, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
