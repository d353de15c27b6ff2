package handlers

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/middleware"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
	"github.com/vartikaresort/funpark-backend/pkg/jwt"
	"github.com/vartikaresort/funpark-backend/pkg/mailer"
	"golang.org/x/crypto/bcrypt"
)

// testEnv wires every handler to one sqlmock database
type testEnv struct {
	mock       sqlmock.Sqlmock
	store      *memoryStore
	jwtService *jwt.Service
	auth       *AuthHandler
	bookings   *BookingHandler
	membership *MembershipHandler
	contacts   *ContactHandler
}

type memoryStore struct {
	saved []string
}

func (m *memoryStore) Save(prefix string, data []byte, ext string) (string, error) {
	ref := fmt.Sprintf("uploads/%s-%d%s", prefix, len(m.saved)+1, ext)
	m.saved = append(m.saved, ref)
	return ref, nil
}

// setupTestEnv creates handlers backed by a mock database
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	logger, _ := test.NewNullLogger()
	store := &memoryStore{}
	jwtService := jwt.NewService("test-secret", time.Hour)

	userRepo := database.NewUserRepository(db)
	audit := services.NewAuditService(db, false)

	authService := services.NewAuthService(
		userRepo,
		database.NewResetTokenRepository(db),
		services.NewOTPService(db, 5*time.Minute, 3),
		services.NewOTPThrottle(db, services.DefaultRateLimitConfig()),
		audit,
		mailer.NewDevSender(logger),
		jwtService,
		services.AuthServiceConfig{BcryptCost: bcrypt.MinCost, ExposeOTP: true},
		logger,
	)
	bookingService := services.NewBookingService(
		database.NewBookingRepository(db),
		database.NewPaymentRepository(db),
		userRepo,
		store,
		audit,
		models.DefaultPriceTable(),
		1024*1024,
		logger,
	)
	membershipService := services.NewMembershipService(
		database.NewMembershipRepository(db), store, models.DefaultMembershipPlans(), 1024*1024, logger,
	)

	return &testEnv{
		mock:       mock,
		store:      store,
		jwtService: jwtService,
		auth:       NewAuthHandler(authService),
		bookings:   NewBookingHandler(bookingService, 1024*1024),
		membership: NewMembershipHandler(membershipService, 1024*1024),
		contacts:   NewContactHandler(services.NewContactService(database.NewContactRepository(db))),
	}
}

// withUser simulates AuthMiddleware
func withUser(userID uuid.UUID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID: userID,
			Email:  "guest@example.com",
			Role:   role,
		})
		c.Next()
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}
