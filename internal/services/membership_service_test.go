package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/storage"
)

func setupMembershipService(t *testing.T) (*MembershipService, sqlmock.Sqlmock, *memoryStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &memoryStore{}
	logger, _ := test.NewNullLogger()
	service := NewMembershipService(
		database.NewMembershipRepository(&mockDatabase{db: db}),
		store,
		models.DefaultMembershipPlans(),
		1024*1024,
		logger,
	)
	return service, mock, store
}

func TestMembershipService_Purchase(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		service, mock, store := setupMembershipService(t)

		mock.ExpectExec("INSERT INTO memberships").
			WithArgs(sqlmock.AnyArg(), userID, "yearly", sqlmock.AnyArg(), "FP-123",
				"uploads/membership-1.png", "pending-verification", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		purchase, err := service.Purchase(userID, &models.MembershipPurchaseRequest{
			PlanType: "Yearly", Amount: "24999", TransactionID: "FP-123",
		}, pngBytes(t))
		require.NoError(t, err)
		assert.Equal(t, models.MembershipYearly, purchase.PlanType)
		assert.Equal(t, models.MembershipPendingVerification, purchase.Status)
		assert.Len(t, store.saved, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown plan", func(t *testing.T) {
		service, _, _ := setupMembershipService(t)

		_, err := service.Purchase(userID, &models.MembershipPurchaseRequest{
			PlanType: "weekly", Amount: "100", TransactionID: "FP-1",
		}, pngBytes(t))
		assert.Error(t, err)
	})

	t.Run("Amount differs from plan", func(t *testing.T) {
		service, _, store := setupMembershipService(t)

		_, err := service.Purchase(userID, &models.MembershipPurchaseRequest{
			PlanType: "monthly", Amount: "100", TransactionID: "FP-1",
		}, pngBytes(t))
		assert.ErrorIs(t, err, ErrPlanAmountMismatch)
		assert.Empty(t, store.saved)
	})

	t.Run("Missing screenshot", func(t *testing.T) {
		service, _, _ := setupMembershipService(t)

		_, err := service.Purchase(userID, &models.MembershipPurchaseRequest{
			PlanType: "monthly", Amount: "2999", TransactionID: "FP-1",
		}, nil)
		assert.ErrorIs(t, err, storage.ErrEmptyFile)
	})

	t.Run("Missing transaction id", func(t *testing.T) {
		service, _, _ := setupMembershipService(t)

		_, err := service.Purchase(userID, &models.MembershipPurchaseRequest{
			PlanType: "monthly", Amount: "2999.00",
		}, pngBytes(t))
		assert.ErrorIs(t, err, ErrMissingTransactionID)
	})
}

func TestContactService(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewContactService(database.NewContactRepository(&mockDatabase{db: db}))

	t.Run("Submit", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO contacts").
			WithArgs(sqlmock.AnyArg(), "Ram", "ram@example.com", "", "Hello", "Is the pool open?", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		contact, err := service.Submit(&models.CreateContactRequest{
			Name: " Ram ", Email: "Ram@Example.com", Subject: "Hello", Message: "Is the pool open?",
		})
		require.NoError(t, err)
		assert.False(t, contact.Seen)
	})

	t.Run("Submit empty message", func(t *testing.T) {
		_, err := service.Submit(&models.CreateContactRequest{Name: "Ram", Email: "ram@example.com", Message: " "})
		assert.Error(t, err)
	})

	t.Run("Delete missing", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM contacts").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, service.Delete(uuid.New()), ErrContactNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
