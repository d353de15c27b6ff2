package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

var bookingRowColumns = []string{
	"id", "user_id", "booking_type", "booking_for", "other_booking_for",
	"date", "time", "extended_stay_days", "num_people",
	"name", "email", "phone_number", "amount", "payment_method",
	"message", "notes", "booking_status", "created_at", "updated_at",
	"method", "status", "transaction_id", "screenshot_ref", "amount",
}

func newTestBooking() *models.Booking {
	return &models.Booking{
		UserID:        uuid.New(),
		BookingType:   models.BookingTypeTable,
		BookingFor:    models.BookingForFamily,
		Date:          "2025-03-14",
		Time:          "18:30",
		NumPeople:     4,
		Name:          "Hari Thapa",
		Email:         "hari@example.com",
		PhoneNumber:   "9841000000",
		Amount:        decimal.NewFromInt(6000),
		PaymentMethod: models.PaymentMethodPayLater,
		BookingStatus: models.BookingStatusPending,
	}
}

func TestCreateBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Writes booking and payment together", func(t *testing.T) {
		booking := newTestBooking()

		mock.ExpectExec(`WITH b AS \( INSERT INTO bookings (.+) INSERT INTO payments`).
			WithArgs(
				sqlmock.AnyArg(), booking.UserID, "table", "family", "",
				"2025-03-14", "18:30", 4, "Hari Thapa", "hari@example.com", "9841000000",
				sqlmock.AnyArg(), "payLater", "", "pending",
				sqlmock.AnyArg(),
				"payLater", "pending", "", "", sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(booking)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, booking.ID)

		rec, ok := booking.Payment.Recorded()
		require.True(t, ok)
		assert.Equal(t, models.PaymentMethodPayLater, rec.Method)
		assert.Equal(t, models.PaymentStatusPending, rec.Status)
		assert.True(t, rec.Amount.Equal(decimal.NewFromInt(6000)))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("connection reset"))

		err := repo.Create(newTestBooking())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create booking")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	id := uuid.New()
	userID := uuid.New()
	now := time.Now()
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("With payment", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings b LEFT JOIN payments p`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
				id, userID, "room", "business", "",
				date, "14:00", int64(2), 2,
				"Gita", "gita@example.com", "9800000000", "10000", "fonepay",
				"", "", "confirmed", now, now,
				"fonepay", "completed", "TXN42", "uploads/a.png", "10000",
			))

		booking, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-14", booking.Date)
		assert.Equal(t, models.BookingStatusConfirmed, booking.BookingStatus)
		require.NotNil(t, booking.ExtendedStayDays)
		assert.Equal(t, 2, *booking.ExtendedStayDays)

		rec, ok := booking.Payment.Recorded()
		require.True(t, ok)
		assert.Equal(t, models.PaymentStatusVerified, rec.Status)
		assert.Equal(t, "TXN42", rec.TransactionID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Without payment", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings b`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
				id, userID, "ticket", "other", "school trip",
				date, "10:00", nil, 30,
				"Anita Rai", "anita@example.com", "9800000001", "24000", "payLater",
				"", "", "pending", now, now,
				nil, nil, nil, nil, nil,
			))

		booking, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Nil(t, booking.ExtendedStayDays)
		assert.Equal(t, "school trip", booking.Purpose())

		_, ok := booking.Payment.Recorded()
		assert.False(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings b`).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetByID(id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListBookingsByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	userID := uuid.New()
	now := time.Now()
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(bookingRowColumns)
	for i := 0; i < 3; i++ {
		rows.AddRow(
			uuid.New(), userID, "ticket", "family", "",
			date, "11:00", nil, 2,
			"Ram", "ram@example.com", "9800000002", "1600", "payLater",
			"", "", "pending", now, now,
			"payLater", "pending", "", "", "1600",
		)
	}

	mock.ExpectQuery(`WHERE b.user_id = \$1 ORDER BY b.created_at DESC`).
		WithArgs(userID).
		WillReturnRows(rows)

	bookings, err := repo.ListByUser(userID)
	require.NoError(t, err)
	assert.Len(t, bookings, 3)
	for _, b := range bookings {
		assert.Equal(t, userID, b.UserID)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Success", func(t *testing.T) {
		booking := newTestBooking()
		booking.ID = uuid.New()
		days := 3
		booking.ExtendedStayDays = &days
		booking.BookingStatus = models.BookingStatusConfirmed
		updated := time.Now()

		mock.ExpectQuery(`UPDATE bookings SET`).
			WithArgs(booking.ID, "Hari Thapa", "hari@example.com", "2025-03-14", "18:30",
				"confirmed", "", int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

		require.NoError(t, repo.Update(booking))
		assert.Equal(t, updated, booking.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		booking := newTestBooking()
		booking.ID = uuid.New()

		mock.ExpectQuery(`UPDATE bookings SET`).
			WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.Update(booking), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPaymentRepository(&mockDatabase{db: db})
	bookingID := uuid.New()

	mock.ExpectExec(`INSERT INTO payments (.+) ON CONFLICT \(booking_id\) DO UPDATE`).
		WithArgs(bookingID, "fonepay", "pending", "TXN1", "uploads/x.png", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(bookingID, models.PaymentRecord{
		Method:        models.PaymentMethodFonepay,
		Status:        models.PaymentStatusPending,
		TransactionID: "TXN1",
		ScreenshotRef: "uploads/x.png",
		Amount:        decimal.NewFromInt(1600),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaymentStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPaymentRepository(&mockDatabase{db: db})
	bookingID := uuid.New()

	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(bookingID, "rejected").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(bookingID, models.PaymentStatusRejected))

	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(bookingID, "verified").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(bookingID, models.PaymentStatusVerified), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContactRepository(&mockDatabase{db: db})

	t.Run("Count unseen", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts WHERE seen = FALSE`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		count, err := repo.CountUnseen()
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("Mark all seen", func(t *testing.T) {
		mock.ExpectExec(`UPDATE contacts SET seen = TRUE`).
			WillReturnResult(sqlmock.NewResult(0, 5))

		changed, err := repo.MarkAllSeen()
		require.NoError(t, err)
		assert.Equal(t, int64(5), changed)
	})

	t.Run("Delete missing", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(`DELETE FROM contacts WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(id), ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
