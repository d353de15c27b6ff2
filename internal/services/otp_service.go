package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/utils"
)

const (
	defaultOTPExpiry      = 5 * time.Minute
	defaultOTPMaxAttempts = 3
)

var (
	ErrOTPExpired          = errors.New("OTP has expired")
	ErrOTPInvalid          = errors.New("invalid OTP code")
	ErrMaxAttemptsExceeded = errors.New("maximum OTP validation attempts exceeded")
	ErrNoOTPFound          = errors.New("no OTP found for this email")
	ErrOTPAlreadyUsed      = errors.New("OTP has already been used")
)

// OTPService issues and checks the six digit codes mailed for password
// reset and password change. A code is bound to one email and one purpose,
// and only the latest code for that pair is live.
type OTPService struct {
	db          database.DB
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewOTPService(db database.DB, expiry time.Duration, maxAttempts int) *OTPService {
	if expiry <= 0 {
		expiry = defaultOTPExpiry
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOTPMaxAttempts
	}
	return &OTPService{db: db, expiry: expiry, maxAttempts: maxAttempts, now: time.Now}
}

// Expiry is how long an issued code stays usable
func (s *OTPService) Expiry() time.Duration {
	return s.expiry
}

// GenerateOTP issues a fresh code and expires any earlier one for the same
// email and purpose. The caller's IP and user agent are kept for audit.
func (s *OTPService) GenerateOTP(email string, purpose models.OTPPurpose, ipAddress, userAgent string) (string, error) {
	now := s.now()
	if _, err := s.db.Exec(`
		UPDATE otp_verifications SET expires_at = $3
		WHERE email = $1 AND purpose = $2 AND verified = FALSE AND expires_at > $3`,
		email, purpose, now,
	); err != nil {
		return "", fmt.Errorf("failed to supersede earlier OTP: %w", err)
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec(`
		INSERT INTO otp_verifications (email, code_hash, purpose, expires_at, max_attempts, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		email, utils.HashSecret(code), purpose, now.Add(s.expiry), s.maxAttempts,
		nullString(ipAddress), nullString(userAgent),
	); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}
	return code, nil
}

// ValidateOTP consumes code if it is the live code for email and purpose.
// Every check of a live code counts as an attempt.
func (s *OTPService) ValidateOTP(email string, purpose models.OTPPurpose, code string) error {
	otp, err := s.latest(email, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoOTPFound
	}
	if err != nil {
		return fmt.Errorf("failed to load OTP: %w", err)
	}

	switch {
	case otp.Verified:
		return ErrOTPAlreadyUsed
	case !s.now().Before(otp.ExpiresAt):
		return ErrOTPExpired
	case otp.AttemptsLeft() == 0:
		return ErrMaxAttemptsExceeded
	}

	matched := utils.SecretMatches(code, otp.CodeHash)
	if _, err := s.db.Exec(`
		UPDATE otp_verifications
		SET attempts = attempts + 1,
		    verified = $2,
		    verified_at = CASE WHEN $2 THEN NOW() ELSE NULL END
		WHERE id = $1`,
		otp.ID, matched,
	); err != nil {
		return fmt.Errorf("failed to record OTP attempt: %w", err)
	}

	if !matched {
		return ErrOTPInvalid
	}
	return nil
}

func (s *OTPService) latest(email string, purpose models.OTPPurpose) (*models.OTPVerification, error) {
	var otp models.OTPVerification
	err := s.db.QueryRow(`
		SELECT id, code_hash, expires_at, verified, attempts, max_attempts
		FROM otp_verifications
		WHERE email = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		email, purpose,
	).Scan(&otp.ID, &otp.CodeHash, &otp.ExpiresAt, &otp.Verified, &otp.Attempts, &otp.MaxAttempts)
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// CleanupExpiredOTPs deletes codes that can no longer be used
func (s *OTPService) CleanupExpiredOTPs() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM otp_verifications WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired OTPs: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
