package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/utils"
	"github.com/vartikaresort/funpark-backend/pkg/jwt"
	"github.com/vartikaresort/funpark-backend/pkg/mailer"
	"github.com/vartikaresort/funpark-backend/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken indicates a registration with an existing email
	ErrEmailTaken = errors.New("an account with this email already exists")

	// ErrUserNotFound indicates no account matches
	ErrUserNotFound = errors.New("user not found")

	// ErrWrongPassword indicates the current password did not match
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrInvalidResetToken indicates an unknown, used or expired reset token
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// ClientInfo identifies the caller of a request for auditing and rate limits
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AuthServiceConfig holds the tunables of AuthService
type AuthServiceConfig struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
	// ExposeOTP returns generated codes in API responses. Development only.
	ExposeOTP bool
}

// AuthService handles registration, login, profiles and password recovery
type AuthService struct {
	userRepo       *database.UserRepository
	resetTokenRepo *database.ResetTokenRepository
	otpService     *OTPService
	rateLimiter    *OTPThrottle
	auditService   *AuditService
	sender         mailer.Sender
	jwtService     *jwt.Service
	config         AuthServiceConfig
	logger         *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *database.UserRepository,
	resetTokenRepo *database.ResetTokenRepository,
	otpService *OTPService,
	rateLimiter *OTPThrottle,
	auditService *AuditService,
	sender mailer.Sender,
	jwtService *jwt.Service,
	config AuthServiceConfig,
	logger *logrus.Logger,
) *AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = 15 * time.Minute
	}
	return &AuthService{
		userRepo:       userRepo,
		resetTokenRepo: resetTokenRepo,
		otpService:     otpService,
		rateLimiter:    rateLimiter,
		auditService:   auditService,
		sender:         sender,
		jwtService:     jwtService,
		config:         config,
		logger:         logger,
	}
}

// Register creates a regular user account
func (s *AuthService) Register(req *models.RegisterRequest, client ClientInfo) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	phone, err := validator.NormalizePhone(req.Phone)
	if err != nil {
		return nil, invalid(fmt.Errorf("invalid phone number: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Gender:       req.Gender,
		DOB:          req.DOB,
		Email:        models.NormalizeEmail(req.Email),
		Phone:        phone,
		Address:      req.Address,
		Role:         models.RoleRegularUser,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.audit(s.auditService.LogRegister(user.ID, user.Email, client))
	s.logger.WithField("user_id", user.ID).Info("User registered")

	return user, nil
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(req *models.LoginRequest, client ClientInfo) (*models.LoginResponse, error) {
	email := models.NormalizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.audit(s.auditService.LogLogin(nil, email, client, "unknown_email"))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.audit(s.auditService.LogLogin(&user.ID, email, client, "wrong_password"))
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.audit(s.auditService.LogLogin(&user.ID, email, client, ""))

	return &models.LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    *user,
	}, nil
}

// GetProfile returns the user behind an access token
func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile applies a partial profile update
func (s *AuthService) UpdateProfile(userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	if req.Phone != nil {
		phone, err := validator.NormalizePhone(*req.Phone)
		if err != nil {
			return nil, invalid(fmt.Errorf("invalid phone number: %w", err))
		}
		req.Phone = &phone
	}

	req.Apply(user)
	if err := s.userRepo.UpdateProfile(user); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword emails a reset OTP. It returns the code only when
// ExposeOTP is set.
func (s *AuthService) ForgotPassword(email string, client ClientInfo) (string, error) {
	email = models.NormalizeEmail(email)

	if err := s.checkRateLimit(email, client); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	code, err := s.sendOTP(user.Email, models.OTPPurposePasswordReset, client)
	if err != nil {
		return "", err
	}

	s.audit(s.auditService.LogPasswordEvent(&user.ID, ActionPasswordResetRequest, email, client, true))
	return s.exposed(code), nil
}

// VerifyResetOTP checks a reset OTP and issues a one-time reset token
func (s *AuthService) VerifyResetOTP(req *models.VerifyOTPRequest, client ClientInfo) (*models.VerifyOTPResponse, error) {
	email := models.NormalizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.otpService.ValidateOTP(email, models.OTPPurposePasswordReset, req.OTP); err != nil {
		s.audit(s.auditService.LogPasswordEvent(&user.ID, ActionPasswordResetVerify, email, client, false))
		return nil, err
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return nil, err
	}
	if err := s.resetTokenRepo.Store(user.ID, token, time.Now().Add(s.config.ResetTokenTTL)); err != nil {
		return nil, err
	}

	s.audit(s.auditService.LogPasswordEvent(&user.ID, ActionPasswordResetVerify, email, client, true))

	return &models.VerifyOTPResponse{
		Message:    "OTP verified",
		ResetToken: token,
		UserID:     user.ID,
	}, nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *AuthService) ResetPassword(req *models.ResetPasswordRequest, client ClientInfo) error {
	if err := models.ValidatePassword(req.NewPassword); err != nil {
		return invalid(err)
	}

	if err := s.resetTokenRepo.Consume(req.UserID, req.ResetToken); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := s.setPassword(req.UserID, req.NewPassword); err != nil {
		return err
	}

	s.audit(s.auditService.LogPasswordEvent(&req.UserID, ActionPasswordReset, "", client, true))
	return nil
}

// RequestPasswordChangeOTP checks the current password and emails a change OTP
func (s *AuthService) RequestPasswordChangeOTP(userID uuid.UUID, currentPassword string, client ClientInfo) (*models.PasswordChangeOTPResponse, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return nil, ErrWrongPassword
	}

	if err := s.checkRateLimit(user.Email, client); err != nil {
		return nil, err
	}

	code, err := s.sendOTP(user.Email, models.OTPPurposePasswordChange, client)
	if err != nil {
		return nil, err
	}

	return &models.PasswordChangeOTPResponse{
		Message: "OTP sent to your email",
		Email:   user.Email,
		OTP:     s.exposed(code),
	}, nil
}

// ChangePassword sets a new password after checking the OTP and current password
func (s *AuthService) ChangePassword(userID uuid.UUID, req *models.ChangePasswordRequest, client ClientInfo) error {
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	if err := s.otpService.ValidateOTP(user.Email, models.OTPPurposePasswordChange, req.OTP); err != nil {
		s.audit(s.auditService.LogPasswordEvent(&user.ID, ActionPasswordChange, user.Email, client, false))
		return err
	}

	if err := s.setPassword(user.ID, req.NewPassword); err != nil {
		return err
	}

	s.audit(s.auditService.LogPasswordEvent(&user.ID, ActionPasswordChange, user.Email, client, true))
	return nil
}

func (s *AuthService) setPassword(userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(userID, string(hash)); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *AuthService) checkRateLimit(email string, client ClientInfo) error {
	err := s.rateLimiter.Check(email, client.IP)
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		s.audit(s.auditService.LogRateLimitViolation(email, client, rateErr))
	}
	return err
}

func (s *AuthService) sendOTP(email string, purpose models.OTPPurpose, client ClientInfo) (string, error) {
	code, err := s.otpService.GenerateOTP(email, purpose, client.IP, client.UserAgent)
	if err != nil {
		return "", err
	}

	if err := s.rateLimiter.Record(email, client.IP); err != nil {
		s.logger.WithError(err).Warn("Failed to record OTP request")
	}

	if err := s.sender.SendOTP(email, code, string(purpose), s.otpService.Expiry()); err != nil {
		return "", err
	}
	return code, nil
}

func (s *AuthService) exposed(code string) string {
	if s.config.ExposeOTP {
		return code
	}
	return ""
}

// audit logs but never fails a request because of an audit write
func (s *AuthService) audit(err error) {
	if err != nil {
		s.logger.WithError(err).Warn("Failed to write audit log")
	}
}
