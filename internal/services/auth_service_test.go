package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{
	"id", "name", "gender", "dob", "email", "phone", "address",
	"role", "password_hash", "created_at", "updated_at",
}

// recordingSender keeps the last OTP it was asked to send
type recordingSender struct {
	email   string
	code    string
	purpose string
	err     error
}

func (r *recordingSender) SendOTP(email, code, purpose string, validFor time.Duration) error {
	r.email, r.code, r.purpose = email, code, purpose
	return r.err
}

func (r *recordingSender) GetName() string {
	return "recording"
}

func setupAuthService(t *testing.T, exposeOTP bool) (*AuthService, sqlmock.Sqlmock, *recordingSender) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mockDB := &mockDatabase{db: db}
	sender := &recordingSender{}
	logger, _ := test.NewNullLogger()

	service := NewAuthService(
		database.NewUserRepository(mockDB),
		database.NewResetTokenRepository(mockDB),
		NewOTPService(mockDB, 5*time.Minute, 3),
		NewOTPThrottle(mockDB, DefaultRateLimitConfig()),
		NewAuditService(mockDB, false),
		sender,
		jwt.NewService("test-secret-key-for-auth-service", time.Hour),
		AuthServiceConfig{BcryptCost: bcrypt.MinCost, ExposeOTP: exposeOTP},
		logger,
	)
	return service, mock, sender
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func userRow(id uuid.UUID, email, hash string, role int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userRowColumns).AddRow(
		id, "Sita Sharma", "female", nil, email, "9812345678", "Pokhara",
		role, hash, now, now,
	)
}

func expectRateLimitOK(mock sqlmock.Sqlmock) {
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT COUNT(.+) FROM otp_rate_limits").
			WillReturnRows(sqlmock.NewRows([]string{"count", "oldest"}).AddRow(0, nil))
	}
}

func expectOTPIssued(mock sqlmock.Sqlmock) {
	mock.ExpectExec("UPDATE otp_verifications").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO otp_verifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO otp_rate_limits").WillReturnResult(sqlmock.NewResult(2, 2))
}

func TestAuthService_Register(t *testing.T) {
	req := func() *models.RegisterRequest {
		return &models.RegisterRequest{
			Name:     "Sita Sharma",
			Email:    " Sita@Example.com ",
			Phone:    "+977 981 2345678",
			Password: "secret123",
		}
	}

	t.Run("Success", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectExec("INSERT INTO users").
			WillReturnResult(sqlmock.NewResult(1, 1))

		user, err := service.Register(req(), ClientInfo{IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, "sita@example.com", user.Email)
		assert.Equal(t, "9812345678", user.Phone)
		assert.Equal(t, models.RoleRegularUser, user.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Email taken", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.Register(req(), ClientInfo{})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("Weak password", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)
		r := req()
		r.Password = "short"

		_, err := service.Register(r, ClientInfo{})
		assert.ErrorIs(t, err, models.ErrWeakPassword)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_Login(t *testing.T) {
	userID := uuid.New()
	hash := hashPassword(t, "secret123")

	t.Run("Success", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WithArgs("admin@example.com").
			WillReturnRows(userRow(userID, "admin@example.com", hash, 1))

		resp, err := service.Login(&models.LoginRequest{Email: "ADMIN@example.com", Password: "secret123"}, ClientInfo{})
		require.NoError(t, err)
		assert.Equal(t, "Login successful", resp.Message)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)

		claims, err := service.jwtService.ValidateAccessToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.Subject)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})

	t.Run("Wrong password", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WillReturnRows(userRow(userID, "admin@example.com", hash, 1))

		_, err := service.Login(&models.LoginRequest{Email: "admin@example.com", Password: "nope12345"}, ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown email", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := service.Login(&models.LoginRequest{Email: "ghost@example.com", Password: "secret123"}, ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_ForgotPassword(t *testing.T) {
	userID := uuid.New()

	t.Run("Sends OTP and exposes it in dev", func(t *testing.T) {
		service, mock, sender := setupAuthService(t, true)

		expectRateLimitOK(mock)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WillReturnRows(userRow(userID, "guest@example.com", "hash", 0))
		expectOTPIssued(mock)

		code, err := service.ForgotPassword("guest@example.com", ClientInfo{IP: "10.0.0.2"})
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Equal(t, code, sender.code)
		assert.Equal(t, "guest@example.com", sender.email)
		assert.Equal(t, string(models.OTPPurposePasswordReset), sender.purpose)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Code hidden in production", func(t *testing.T) {
		service, mock, sender := setupAuthService(t, false)

		expectRateLimitOK(mock)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WillReturnRows(userRow(userID, "guest@example.com", "hash", 0))
		expectOTPIssued(mock)

		code, err := service.ForgotPassword("guest@example.com", ClientInfo{IP: "10.0.0.2"})
		require.NoError(t, err)
		assert.Empty(t, code)
		assert.Len(t, sender.code, 6)
	})

	t.Run("Rate limited", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectQuery("SELECT COUNT(.+) FROM otp_rate_limits").
			WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).AddRow(3, time.Now()))

		_, err := service.ForgotPassword("guest@example.com", ClientInfo{IP: "10.0.0.2"})
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "email", rateErr.Type)
	})

	t.Run("Mail failure", func(t *testing.T) {
		service, mock, sender := setupAuthService(t, false)
		sender.err = fmt.Errorf("smtp down")

		expectRateLimitOK(mock)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WillReturnRows(userRow(userID, "guest@example.com", "hash", 0))
		expectOTPIssued(mock)

		_, err := service.ForgotPassword("guest@example.com", ClientInfo{IP: "10.0.0.2"})
		assert.Error(t, err)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectExec("UPDATE password_reset_tokens").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET password_hash").
			WithArgs(userID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.ResetPassword(&models.ResetPasswordRequest{
			UserID: userID, ResetToken: "tok", NewPassword: "newpass123",
		}, ClientInfo{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Token already used", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, false)

		mock.ExpectExec("UPDATE password_reset_tokens").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.ResetPassword(&models.ResetPasswordRequest{
			UserID: userID, ResetToken: "tok", NewPassword: "newpass123",
		}, ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})
}

func TestAuthService_RequestPasswordChangeOTP(t *testing.T) {
	userID := uuid.New()
	hash := hashPassword(t, "secret123")

	t.Run("Wrong current password", func(t *testing.T) {
		service, mock, _ := setupAuthService(t, true)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(userRow(userID, "guest@example.com", hash, 0))

		_, err := service.RequestPasswordChangeOTP(userID, "wrong1234", ClientInfo{})
		assert.ErrorIs(t, err, ErrWrongPassword)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		service, mock, sender := setupAuthService(t, true)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(userRow(userID, "guest@example.com", hash, 0))
		expectRateLimitOK(mock)
		expectOTPIssued(mock)

		resp, err := service.RequestPasswordChangeOTP(userID, "secret123", ClientInfo{IP: "10.0.0.3"})
		require.NoError(t, err)
		assert.Equal(t, "guest@example.com", resp.Email)
		assert.Equal(t, sender.code, resp.OTP)
		assert.Equal(t, string(models.OTPPurposePasswordChange), sender.purpose)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
