package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a booking is paid
type PaymentMethod string

const (
	PaymentMethodPayLater PaymentMethod = "payLater"
	PaymentMethodFonepay  PaymentMethod = "fonepay"
)

// ParsePaymentMethod parses a payment method. The legacy "qr" value means fonepay.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paylater":
		return PaymentMethodPayLater, nil
	case "fonepay", "qr":
		return PaymentMethodFonepay, nil
	}
	return "", fmt.Errorf("invalid payment method: %s", s)
}

// RequiresProof reports whether the method needs a transaction id and screenshot
func (m PaymentMethod) RequiresProof() bool {
	return m == PaymentMethodFonepay
}

// PaymentStatus represents the verification state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

var (
	// ErrNoPaymentRecorded indicates a payment status change on a booking
	// without a payment record
	ErrNoPaymentRecorded = errors.New("booking has no recorded payment")

	// ErrPaymentProofMissing indicates verifying an online payment before
	// its proof was submitted
	ErrPaymentProofMissing = errors.New("payment proof has not been submitted")
)

// IsValid reports whether s is one of the three payment states
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// NormalizePaymentStatus maps legacy status words onto the three known states
func NormalizePaymentStatus(s string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verified", "completed", "success":
		return PaymentStatusVerified
	case "rejected", "failed":
		return PaymentStatusRejected
	}
	return PaymentStatusPending
}

// PaymentRecord is a payment that has been recorded against a booking
type PaymentRecord struct {
	Method        PaymentMethod   `json:"paymentMethod"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	ScreenshotRef string          `json:"screenshot,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Payment is either not recorded or a recorded PaymentRecord.
// The zero value is not recorded.
type Payment struct {
	record *PaymentRecord
}

// NotRecordedPayment returns a payment with no record
func NotRecordedPayment() Payment {
	return Payment{}
}

// RecordedPayment wraps a record
func RecordedPayment(record PaymentRecord) Payment {
	return Payment{record: &record}
}

// Recorded returns the record and true, or false when nothing is recorded
func (p Payment) Recorded() (PaymentRecord, bool) {
	if p.record == nil {
		return PaymentRecord{}, false
	}
	return *p.record, true
}

// StatusLabel returns the payment status, or "not recorded"
func (p Payment) StatusLabel() string {
	if p.record == nil {
		return "not recorded"
	}
	return string(p.record.Status)
}

// withStatus returns the record moved to status. An online payment is only
// verified once its transaction id is on file.
func (p Payment) withStatus(status PaymentStatus) (PaymentRecord, error) {
	if p.record == nil {
		return PaymentRecord{}, ErrNoPaymentRecorded
	}
	record := *p.record
	if status == PaymentStatusVerified && record.Method.RequiresProof() && record.TransactionID == "" {
		return PaymentRecord{}, ErrPaymentProofMissing
	}
	record.Status = status
	return record, nil
}

// MarshalJSON encodes a missing record as null
func (p Payment) MarshalJSON() ([]byte, error) {
	if p.record == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.record)
}

// UnmarshalJSON decodes null or an empty object as not recorded
func (p *Payment) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		p.record = nil
		return nil
	}

	var raw struct {
		Method        string          `json:"paymentMethod"`
		Status        string          `json:"status"`
		TransactionID string          `json:"transactionId"`
		ScreenshotRef string          `json:"screenshot"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("invalid payment record: %w", err)
	}

	record := PaymentRecord{
		Method:        PaymentMethod(raw.Method),
		Status:        NormalizePaymentStatus(raw.Status),
		TransactionID: raw.TransactionID,
		ScreenshotRef: raw.ScreenshotRef,
		Amount:        raw.Amount,
	}
	if method, err := ParsePaymentMethod(raw.Method); err == nil {
		record.Method = method
	}
	p.record = &record
	return nil
}

// VerifyPaymentResponse is the response of POST /bookApi/verify-payment
type VerifyPaymentResponse struct {
	Message   string        `json:"message"`
	BookingID uuid.UUID     `json:"bookingId"`
	Payment   PaymentRecord `json:"payment"`
}
