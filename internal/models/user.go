package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Role is the authorization level of a user
type Role int

const (
	RoleRegularUser Role = 0
	RoleAdmin       Role = 1
)

// IsAdmin reports whether r grants admin access
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleRegularUser:
		return "user"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// UnmarshalJSON accepts the integer encoding and rejects unknown roles
func (r *Role) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("role must be an integer: %w", err)
	}
	switch Role(n) {
	case RoleRegularUser, RoleAdmin:
		*r = Role(n)
		return nil
	}
	return fmt.Errorf("unknown role %d", n)
}

// User represents a registered customer or admin
type User struct {
	ID           uuid.UUID `json:"_id"`
	Name         string    `json:"name"`
	Gender       string    `json:"gender,omitempty"`
	DOB          string    `json:"dob,omitempty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ErrWeakPassword indicates a password that fails the strength rules
var ErrWeakPassword = errors.New("password must be at least 8 characters and contain at least one letter and one number")

// ValidatePassword checks the password rules: 8 or more characters with at
// least one letter and one digit
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

var otpRegex = regexp.MustCompile(`^\d{6}$`)

// ValidateOTPCode checks that code is exactly six digits
func ValidateOTPCode(code string) error {
	if !otpRegex.MatchString(code) {
		return errors.New("OTP must be 6 digits")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Gender   string `json:"gender"`
	DOB      string `json:"dob"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address"`
	Password string `json:"password" binding:"required"`
}

// Validate checks formats not covered by binding tags
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email address")
	}
	if r.DOB != "" {
		if _, err := time.Parse(DateLayout, r.DOB); err != nil {
			return errors.New("date of birth must be in YYYY-MM-DD format")
		}
	}
	r.Email = NormalizeEmail(r.Email)
	return ValidatePassword(r.Password)
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response of POST /api/login
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// RegisterResponse is the response of POST /api/register
type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// UpdateProfileRequest is the body of PUT /api/update
type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty"`
	Gender  *string `json:"gender,omitempty"`
	DOB     *string `json:"dob,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Validate checks the fields present in the request
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.DOB != nil && *r.DOB != "" {
		if _, err := time.Parse(DateLayout, *r.DOB); err != nil {
			return errors.New("date of birth must be in YYYY-MM-DD format")
		}
	}
	return nil
}

// Apply copies the present fields onto u
func (r *UpdateProfileRequest) Apply(u *User) {
	if r.Name != nil {
		u.Name = strings.TrimSpace(*r.Name)
	}
	if r.Gender != nil {
		u.Gender = *r.Gender
	}
	if r.DOB != nil {
		u.DOB = *r.DOB
	}
	if r.Phone != nil {
		u.Phone = *r.Phone
	}
	if r.Address != nil {
		u.Address = *r.Address
	}
}

// ForgotPasswordRequest is the body of POST /api/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// VerifyOTPRequest is the body of POST /api/verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTPResponse carries the one-time reset token
type VerifyOTPResponse struct {
	Message    string    `json:"message"`
	ResetToken string    `json:"resetToken"`
	UserID     uuid.UUID `json:"userId"`
}

// ResetPasswordRequest is the body of POST /api/reset-password
type ResetPasswordRequest struct {
	UserID      uuid.UUID `json:"userId" binding:"required"`
	ResetToken  string    `json:"resetToken" binding:"required"`
	NewPassword string    `json:"newPassword" binding:"required"`
}

// PasswordChangeOTPRequest is the body of POST /api/request-password-change-otp
type PasswordChangeOTPRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
}

// PasswordChangeOTPResponse tells the client where the OTP was sent
type PasswordChangeOTPResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	OTP     string `json:"otp,omitempty"`
}

// ChangePasswordRequest is the body of PUT /api/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	OTP             string `json:"otp" binding:"required"`
}

// Validate checks the OTP format and new password strength
func (r *ChangePasswordRequest) Validate() error {
	if err := ValidateOTPCode(r.OTP); err != nil {
		return err
	}
	if r.CurrentPassword == r.NewPassword {
		return errors.New("new password must be different from the current password")
	}
	return ValidatePassword(r.NewPassword)
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}
