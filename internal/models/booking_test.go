package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceTable_Quote(t *testing.T) {
	prices := DefaultPriceTable()

	tests := []struct {
		name        string
		bookingType BookingType
		numPeople   int
		expected    int64
	}{
		{"Table for four", BookingTypeTable, 4, 6000},
		{"Room for two", BookingTypeRoom, 2, 10000},
		{"Single ticket", BookingTypeTicket, 1, 800},
		{"Ticket group", BookingTypeTicket, 7, 5600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := prices.Quote(tt.bookingType, tt.numPeople)
			require.NoError(t, err)
			assert.True(t, amount.Equal(decimal.NewFromInt(tt.expected)), "got %s", amount)
		})
	}

	t.Run("Every type scales linearly", func(t *testing.T) {
		for _, bt := range BookingTypes {
			unit, err := prices.UnitPrice(bt)
			require.NoError(t, err)
			for n := 1; n <= 20; n++ {
				amount, err := prices.Quote(bt, n)
				require.NoError(t, err)
				assert.True(t, amount.Equal(unit.Mul(decimal.NewFromInt(int64(n)))))
			}
		}
	})

	t.Run("Zero people", func(t *testing.T) {
		_, err := prices.Quote(BookingTypeRoom, 0)
		assert.Error(t, err)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := prices.Quote(BookingType("spa"), 1)
		assert.ErrorIs(t, err, ErrUnknownBookingType)
	})

	t.Run("Injected table", func(t *testing.T) {
		custom := NewPriceTable(decimal.NewFromInt(4000), decimal.NewFromInt(1000), decimal.NewFromInt(500))
		amount, err := custom.Quote(BookingTypeTable, 4)
		require.NoError(t, err)
		assert.True(t, amount.Equal(decimal.NewFromInt(4000)))
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		allowed  bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusPending, true},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusConfirmed, true},
		{BookingStatusCancelled, BookingStatusPending, false},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatus("archived"), BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
			err := tt.from.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestExtendStay(t *testing.T) {
	base := Booking{ID: uuid.New(), Date: "2025-06-01", BookingStatus: BookingStatusConfirmed}

	t.Run("Date moves by N days", func(t *testing.T) {
		for n := 1; n <= 40; n++ {
			ext, err := ExtendStay(base, n, ReplaceExtension)
			require.NoError(t, err)
			expected := mustDate(t, "2025-06-01").AddDate(0, 0, n).Format(DateLayout)
			assert.Equal(t, expected, ext.Date)
			assert.Equal(t, n, ext.ExtendedStayDays)
		}
	})

	t.Run("Month rollover", func(t *testing.T) {
		b := base
		b.Date = "2025-01-30"
		ext, err := ExtendStay(b, 3, ReplaceExtension)
		require.NoError(t, err)
		assert.Equal(t, "2025-02-02", ext.Date)
	})

	t.Run("Replace policy overwrites prior extension", func(t *testing.T) {
		first, err := ExtendStay(base, 2, ReplaceExtension)
		require.NoError(t, err)

		b := base
		b.Date = first.Date
		b.ExtendedStayDays = &first.ExtendedStayDays

		second, err := ExtendStay(b, 3, ReplaceExtension)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-06", second.Date)
		assert.Equal(t, 3, second.ExtendedStayDays)
	})

	t.Run("Accumulate policy adds to prior extension", func(t *testing.T) {
		first, err := ExtendStay(base, 2, AccumulateExtension)
		require.NoError(t, err)
		assert.Equal(t, 2, first.ExtendedStayDays)

		b := base
		b.Date = first.Date
		b.ExtendedStayDays = &first.ExtendedStayDays

		second, err := ExtendStay(b, 3, AccumulateExtension)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-06", second.Date)
		assert.Equal(t, 5, second.ExtendedStayDays)
	})

	t.Run("Nil policy defaults to replace", func(t *testing.T) {
		prior := 4
		b := base
		b.ExtendedStayDays = &prior
		ext, err := ExtendStay(b, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, ext.ExtendedStayDays)
	})

	t.Run("Less than one day", func(t *testing.T) {
		_, err := ExtendStay(base, 0, ReplaceExtension)
		assert.ErrorIs(t, err, ErrInvalidExtension)
	})

	t.Run("Cancelled booking", func(t *testing.T) {
		b := base
		b.BookingStatus = BookingStatusCancelled
		_, err := ExtendStay(b, 1, ReplaceExtension)
		assert.ErrorIs(t, err, ErrBookingCancelled)
	})

	t.Run("Pending booking can be extended", func(t *testing.T) {
		b := base
		b.BookingStatus = BookingStatusPending
		_, err := ExtendStay(b, 1, ReplaceExtension)
		assert.NoError(t, err)
	})

	t.Run("Request carries both fields", func(t *testing.T) {
		ext, err := ExtendStay(base, 2, ReplaceExtension)
		require.NoError(t, err)
		req := ext.Request()
		require.NotNil(t, req.Date)
		require.NotNil(t, req.ExtendedStayDays)
		assert.Equal(t, "2025-06-03", *req.Date)
		assert.Equal(t, 2, *req.ExtendedStayDays)
		assert.Nil(t, req.BookingStatus)
	})
}

func TestFilterBookings(t *testing.T) {
	bookings := []Booking{
		{ID: uuid.New(), BookingStatus: BookingStatusPending},
		{ID: uuid.New(), BookingStatus: BookingStatusConfirmed},
		{ID: uuid.New(), BookingStatus: BookingStatusPending},
		{ID: uuid.New(), BookingStatus: BookingStatusCancelled},
	}

	t.Run("All keeps everything", func(t *testing.T) {
		assert.Equal(t, bookings, FilterBookings(bookings, FilterAll))
	})

	t.Run("Pending", func(t *testing.T) {
		pending := FilterBookings(bookings, FilterPending)
		require.Len(t, pending, 2)
		for _, b := range pending {
			assert.Equal(t, BookingStatusPending, b.BookingStatus)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		for _, f := range []BookingFilter{FilterAll, FilterPending, FilterConfirmed, FilterCancelled} {
			once := FilterBookings(bookings, f)
			twice := FilterBookings(once, f)
			assert.Equal(t, once, twice)
		}
	})

	t.Run("Input untouched", func(t *testing.T) {
		_ = FilterBookings(bookings, FilterConfirmed)
		assert.Len(t, bookings, 4)
	})

	t.Run("Parse", func(t *testing.T) {
		f, err := ParseBookingFilter("")
		require.NoError(t, err)
		assert.Equal(t, FilterAll, f)

		f, err = ParseBookingFilter("Confirmed")
		require.NoError(t, err)
		assert.Equal(t, FilterConfirmed, f)

		_, err = ParseBookingFilter("archived")
		assert.Error(t, err)
	})
}

func TestCreateBookingRequest_Validate(t *testing.T) {
	valid := func() CreateBookingRequest {
		return CreateBookingRequest{
			BookingType:   BookingTypeRoom,
			BookingFor:    BookingForFamily,
			Date:          "2025-06-01",
			Time:          "14:00",
			NumPeople:     2,
			Name:          "Sita Sharma",
			Email:         "sita@example.com",
			PhoneNumber:   "9812345678",
			PaymentMethod: PaymentMethodPayLater,
		}
	}

	t.Run("Valid", func(t *testing.T) {
		req := valid()
		assert.NoError(t, req.Validate())
	})

	t.Run("Legacy qr method normalises", func(t *testing.T) {
		req := valid()
		req.PaymentMethod = "qr"
		require.NoError(t, req.Validate())
		assert.Equal(t, PaymentMethodFonepay, req.PaymentMethod)
	})

	cases := map[string]func(r *CreateBookingRequest){
		"Unknown type":        func(r *CreateBookingRequest) { r.BookingType = "spa" },
		"Other without text":  func(r *CreateBookingRequest) { r.BookingFor = BookingForOther },
		"Zero people":         func(r *CreateBookingRequest) { r.NumPeople = 0 },
		"Bad date":            func(r *CreateBookingRequest) { r.Date = "01/06/2025" },
		"Bad time":            func(r *CreateBookingRequest) { r.Time = "2pm" },
		"Bad email":           func(r *CreateBookingRequest) { r.Email = "not-an-email" },
		"Unknown method":      func(r *CreateBookingRequest) { r.PaymentMethod = "cash" },
		"Negative amount":     func(r *CreateBookingRequest) { r.Amount = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid()
			mutate(&req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestUpdateBookingRequest_Apply(t *testing.T) {
	status := func(s BookingStatus) *BookingStatus { return &s }
	intPtr := func(n int) *int { return &n }

	t.Run("Confirm pending", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusPending}
		req := UpdateBookingRequest{BookingStatus: status(BookingStatusConfirmed)}
		require.NoError(t, req.Apply(&b))
		assert.Equal(t, BookingStatusConfirmed, b.BookingStatus)
	})

	t.Run("Confirmed back to pending is rejected", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusConfirmed, Name: "Before"}
		name := "After"
		req := UpdateBookingRequest{BookingStatus: status(BookingStatusPending), Name: &name}
		assert.ErrorIs(t, req.Apply(&b), ErrInvalidTransition)
		assert.Equal(t, "Before", b.Name)
	})

	t.Run("Extension of cancelled booking is rejected", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusCancelled, Date: "2025-06-01"}
		date := "2025-06-03"
		req := UpdateBookingRequest{Date: &date, ExtendedStayDays: intPtr(2)}
		assert.ErrorIs(t, req.Apply(&b), ErrBookingCancelled)
		assert.Equal(t, "2025-06-01", b.Date)
	})

	t.Run("Extension applies date and days", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusPending, Date: "2025-06-01"}
		date := "2025-06-03"
		req := UpdateBookingRequest{Date: &date, ExtendedStayDays: intPtr(2)}
		require.NoError(t, req.Apply(&b))
		assert.Equal(t, "2025-06-03", b.Date)
		require.NotNil(t, b.ExtendedStayDays)
		assert.Equal(t, 2, *b.ExtendedStayDays)
	})

	t.Run("Extension without date derives it", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusConfirmed, Date: "2025-06-01"}
		req := UpdateBookingRequest{ExtendedStayDays: intPtr(3)}
		require.NoError(t, req.Apply(&b))
		assert.Equal(t, "2025-06-04", b.Date)
	})

	t.Run("Extension with a foreign date is rejected", func(t *testing.T) {
		b := Booking{BookingStatus: BookingStatusConfirmed, Date: "2025-06-01"}
		date := "2025-07-01"
		req := UpdateBookingRequest{Date: &date, ExtendedStayDays: intPtr(3)}
		assert.ErrorIs(t, req.Apply(&b), ErrExtensionDateMismatch)
		assert.Equal(t, "2025-06-01", b.Date)
		assert.Nil(t, b.ExtendedStayDays)
	})

	t.Run("Both extension policies are accepted", func(t *testing.T) {
		for name, policy := range map[string]ExtensionPolicy{"replace": ReplaceExtension, "accumulate": AccumulateExtension} {
			prior := 2
			b := Booking{BookingStatus: BookingStatusConfirmed, Date: "2025-06-03", ExtendedStayDays: &prior}
			ext, err := ExtendStay(b, 3, policy)
			require.NoError(t, err)

			req := ext.Request()
			require.NoError(t, req.Apply(&b), name)
			assert.Equal(t, "2025-06-06", b.Date, name)
			assert.Equal(t, ext.ExtendedStayDays, *b.ExtendedStayDays, name)
		}
	})

	t.Run("Payment status", func(t *testing.T) {
		paid := func(s PaymentStatus) *PaymentStatus { return &s }
		proof := Booking{
			BookingStatus: BookingStatusPending,
			Payment: RecordedPayment(PaymentRecord{
				Method: PaymentMethodFonepay, Status: PaymentStatusPending, TransactionID: "FP-1",
			}),
		}

		b := proof
		require.NoError(t, (&UpdateBookingRequest{PaymentStatus: paid(PaymentStatusVerified)}).Apply(&b))
		assert.Equal(t, "verified", b.Payment.StatusLabel())
		assert.Equal(t, "pending", proof.Payment.StatusLabel(), "the original record is not shared")

		b = proof
		b.Payment = RecordedPayment(PaymentRecord{Method: PaymentMethodFonepay, Status: PaymentStatusPending})
		assert.ErrorIs(t, (&UpdateBookingRequest{PaymentStatus: paid(PaymentStatusVerified)}).Apply(&b), ErrPaymentProofMissing)
		require.NoError(t, (&UpdateBookingRequest{PaymentStatus: paid(PaymentStatusRejected)}).Apply(&b))

		b = Booking{BookingStatus: BookingStatusPending}
		assert.ErrorIs(t, (&UpdateBookingRequest{PaymentStatus: paid(PaymentStatusVerified)}).Apply(&b), ErrNoPaymentRecorded)

		b = proof
		req := UpdateBookingRequest{BookingStatus: status(BookingStatusCancelled), PaymentStatus: paid(PaymentStatusVerified)}
		assert.ErrorIs(t, req.Apply(&b), ErrBookingCancelled)
		assert.Equal(t, BookingStatusPending, b.BookingStatus)

		assert.Error(t, (&UpdateBookingRequest{PaymentStatus: paid("paid")}).Validate())
		assert.False(t, (&UpdateBookingRequest{PaymentStatus: paid(PaymentStatusVerified)}).IsEmpty())
	})

	t.Run("Empty", func(t *testing.T) {
		assert.True(t, (&UpdateBookingRequest{}).IsEmpty())
		assert.False(t, (&UpdateBookingRequest{ExtendedStayDays: intPtr(1)}).IsEmpty())
	})

	t.Run("Validate rejects zero day extension", func(t *testing.T) {
		req := UpdateBookingRequest{ExtendedStayDays: intPtr(0)}
		assert.ErrorIs(t, req.Validate(), ErrInvalidExtension)
	})
}

func TestBooking_JSON(t *testing.T) {
	id := uuid.New()
	b := Booking{
		ID:            id,
		BookingType:   BookingTypeRoom,
		Amount:        decimal.NewFromInt(10000),
		PaymentMethod: PaymentMethodPayLater,
		BookingStatus: BookingStatusPending,
	}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, id.String(), raw["_id"])
	assert.Equal(t, float64(10000), raw["amount"])
	assert.Nil(t, raw["payment"])
	assert.NotContains(t, raw, "extendedStayDays")
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return parsed
}
