package models

import (
	"database/sql"
	"time"
)

// OTPPurpose scopes an OTP to a single flow
type OTPPurpose string

const (
	OTPPurposePasswordReset  OTPPurpose = "password_reset"
	OTPPurposePasswordChange OTPPurpose = "password_change"
)

// OTPVerification is a row of otp_verifications. The code itself is never
// stored, only its hash.
type OTPVerification struct {
	ID          int64          `db:"id"`
	Email       string         `db:"email"`
	CodeHash    string         `db:"code_hash"`
	Purpose     OTPPurpose     `db:"purpose"`
	CreatedAt   time.Time      `db:"created_at"`
	ExpiresAt   time.Time      `db:"expires_at"`
	Verified    bool           `db:"verified"`
	VerifiedAt  sql.NullTime   `db:"verified_at"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	IPAddress   sql.NullString `db:"ip_address"`
	UserAgent   sql.NullString `db:"user_agent"`
}

// AttemptsLeft is how many more wrong codes the row accepts
func (o *OTPVerification) AttemptsLeft() int {
	if left := o.MaxAttempts - o.Attempts; left > 0 {
		return left
	}
	return 0
}
