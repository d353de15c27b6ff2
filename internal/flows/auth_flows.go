package flows

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// AuthAPI is the part of the API the account flows call
type AuthAPI interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) (*models.MessageResponse, error)
	VerifyOTP(ctx context.Context, email, otp string) (*models.VerifyOTPResponse, error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
	RequestPasswordChangeOTP(ctx context.Context, currentPassword string) (*models.PasswordChangeOTPResponse, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error)
}

// LoginForm is the login page
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the sign-up page
type RegisterForm struct {
	Name            string `json:"name" validate:"not_blank"`
	Gender          string `json:"gender"`
	DOB             string `json:"dob" validate:"omitempty,booking_date"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,mobile"`
	Address         string `json:"address"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// AccountFlows holds login, registration, logout and both password flows
type AccountFlows struct {
	api       AuthAPI
	session   *Session
	validator *FormValidator
}

// NewAccountFlows creates the account flows over session
func NewAccountFlows(api AuthAPI, session *Session, v *FormValidator) *AccountFlows {
	if v == nil {
		v = NewFormValidator()
	}
	return &AccountFlows{api: api, session: session, validator: v}
}

// Login stores the token and profile and returns the landing route
func (a *AccountFlows) Login(ctx context.Context, form LoginForm) (string, error) {
	form.Email = models.NormalizeEmail(form.Email)
	if err := a.validator.Validate(form); err != nil {
		return "", err
	}

	resp, err := a.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		return "", withFallback(err, "Login failed")
	}
	if err := a.session.Login(resp.Token, resp.User); err != nil {
		return "", err
	}
	return LandingRoute(resp.User.Role), nil
}

// Register creates the account and logs straight in
func (a *AccountFlows) Register(ctx context.Context, form RegisterForm) (string, error) {
	form.Email = models.NormalizeEmail(form.Email)
	form.Name = strings.TrimSpace(form.Name)
	if err := a.validator.Validate(form); err != nil {
		return "", err
	}

	_, err := a.api.Register(ctx, models.RegisterRequest{
		Name:     form.Name,
		Gender:   form.Gender,
		DOB:      form.DOB,
		Email:    form.Email,
		Phone:    form.Phone,
		Address:  form.Address,
		Password: form.Password,
	})
	if err != nil {
		return "", withFallback(err, "Registration failed")
	}
	return a.Login(ctx, LoginForm{Email: form.Email, Password: form.Password})
}

// Logout clears the session
func (a *AccountFlows) Logout() error {
	return a.session.Logout()
}

// UpdateProfile saves the changed fields and refreshes the stored profile
func (a *AccountFlows) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	if !a.session.IsAuthenticated() {
		return nil, client.AuthRequiredError()
	}
	if err := req.Validate(); err != nil {
		return nil, client.ValidationError(err.Error())
	}

	user, err := a.api.UpdateProfile(ctx, req)
	if err != nil {
		return nil, withFallback(err, "Profile update failed")
	}
	if err := a.session.UpdateProfile(*user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetStep is the position in the forgot-password flow
type ResetStep int

const (
	ResetEnterEmail ResetStep = iota + 1
	ResetEnterOTP
	ResetNewPassword
	ResetDone
)

// PasswordResetFlow is email, then OTP, then new password
type PasswordResetFlow struct {
	api       AuthAPI
	validator *FormValidator

	mu         sync.Mutex
	step       ResetStep
	email      string
	userID     uuid.UUID
	resetToken string
	devOTP     string
}

// NewPasswordResetFlow starts at the email step
func (a *AccountFlows) NewPasswordResetFlow() *PasswordResetFlow {
	return &PasswordResetFlow{api: a.api, validator: a.validator, step: ResetEnterEmail}
}

type emailForm struct {
	Email string `json:"email" validate:"required,email"`
}

type otpForm struct {
	OTP string `json:"otp" validate:"required,otp_code"`
}

type newPasswordForm struct {
	NewPassword     string `json:"newPassword" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// Step returns the current step
func (f *PasswordResetFlow) Step() ResetStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// DevOTP returns the OTP a development server echoed back, or ""
func (f *PasswordResetFlow) DevOTP() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devOTP
}

// RequestOTP sends the reset code to email
func (f *PasswordResetFlow) RequestOTP(ctx context.Context, email string) error {
	form := emailForm{Email: models.NormalizeEmail(email)}
	if err := f.validator.Validate(form); err != nil {
		return err
	}

	resp, err := f.api.ForgotPassword(ctx, form.Email)
	if err != nil {
		return withFallback(err, "Failed to send OTP")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = form.Email
	f.devOTP = resp.OTP
	f.step = ResetEnterOTP
	return nil
}

// VerifyOTP checks the six digit code
func (f *PasswordResetFlow) VerifyOTP(ctx context.Context, otp string) error {
	form := otpForm{OTP: strings.TrimSpace(otp)}
	if err := f.validator.Validate(form); err != nil {
		return err
	}

	f.mu.Lock()
	if f.step != ResetEnterOTP {
		f.mu.Unlock()
		return ErrWrongStep
	}
	email := f.email
	f.mu.Unlock()

	resp, err := f.api.VerifyOTP(ctx, email, form.OTP)
	if err != nil {
		return withFallback(err, "OTP verification failed")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = resp.UserID
	f.resetToken = resp.ResetToken
	f.step = ResetNewPassword
	return nil
}

// SetPassword sets the new password with the reset token
func (f *PasswordResetFlow) SetPassword(ctx context.Context, password, confirm string) error {
	form := newPasswordForm{NewPassword: password, ConfirmPassword: confirm}
	if err := f.validator.Validate(form); err != nil {
		return err
	}

	f.mu.Lock()
	if f.step != ResetNewPassword {
		f.mu.Unlock()
		return ErrWrongStep
	}
	req := models.ResetPasswordRequest{UserID: f.userID, ResetToken: f.resetToken, NewPassword: password}
	f.mu.Unlock()

	if err := f.api.ResetPassword(ctx, req); err != nil {
		return withFallback(err, "Password reset failed")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetToken = ""
	f.step = ResetDone
	return nil
}

// ChangeStep is the position in the change-password flow
type ChangeStep int

const (
	ChangeEnterCurrent ChangeStep = iota + 1
	ChangeEnterOTP
	ChangeDone
)

// PasswordChangeFlow is current password, then OTP with the new password
type PasswordChangeFlow struct {
	api       AuthAPI
	session   *Session
	validator *FormValidator

	mu      sync.Mutex
	step    ChangeStep
	current string
	sentTo  string
	devOTP  string
}

// NewPasswordChangeFlow starts at the current password step
func (a *AccountFlows) NewPasswordChangeFlow() *PasswordChangeFlow {
	return &PasswordChangeFlow{api: a.api, session: a.session, validator: a.validator, step: ChangeEnterCurrent}
}

type currentPasswordForm struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
}

type changePasswordForm struct {
	OTP             string `json:"otp" validate:"required,otp_code"`
	NewPassword     string `json:"newPassword" validate:"required,password,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
	CurrentPassword string `json:"currentPassword"`
}

// Step returns the current step
func (f *PasswordChangeFlow) Step() ChangeStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// SentTo is the address the OTP went to
func (f *PasswordChangeFlow) SentTo() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sentTo
}

// DevOTP returns the OTP a development server echoed back, or ""
func (f *PasswordChangeFlow) DevOTP() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devOTP
}

// RequestOTP checks the current password on the server and mails a code
func (f *PasswordChangeFlow) RequestOTP(ctx context.Context, currentPassword string) error {
	if !f.session.IsAuthenticated() {
		return client.AuthRequiredError()
	}
	if err := f.validator.Validate(currentPasswordForm{CurrentPassword: currentPassword}); err != nil {
		return err
	}

	resp, err := f.api.RequestPasswordChangeOTP(ctx, currentPassword)
	if err != nil {
		return withFallback(err, "Failed to send OTP")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = currentPassword
	f.sentTo = resp.Email
	f.devOTP = resp.OTP
	f.step = ChangeEnterOTP
	return nil
}

// Submit changes the password
func (f *PasswordChangeFlow) Submit(ctx context.Context, otp, newPassword, confirm string) error {
	f.mu.Lock()
	if f.step != ChangeEnterOTP {
		f.mu.Unlock()
		return ErrWrongStep
	}
	current := f.current
	f.mu.Unlock()

	form := changePasswordForm{
		OTP:             strings.TrimSpace(otp),
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
		CurrentPassword: current,
	}
	if err := f.validator.Validate(form); err != nil {
		return err
	}

	err := f.api.ChangePassword(ctx, models.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
		OTP:             form.OTP,
	})
	if err != nil {
		return withFallback(err, "Password change failed")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = ""
	f.step = ChangeDone
	return nil
}
