package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownBookingType indicates a booking type missing from the price table
var ErrUnknownBookingType = errors.New("no unit price for booking type")

// PriceTable maps each booking type to its per-person unit price
type PriceTable map[BookingType]decimal.Decimal

// DefaultPriceTable returns the standard resort prices in NPR
func DefaultPriceTable() PriceTable {
	return PriceTable{
		BookingTypeRoom:   decimal.NewFromInt(5000),
		BookingTypeTable:  decimal.NewFromInt(1500),
		BookingTypeTicket: decimal.NewFromInt(800),
	}
}

// NewPriceTable builds a table from explicit room, table and ticket prices
func NewPriceTable(room, table, ticket decimal.Decimal) PriceTable {
	return PriceTable{
		BookingTypeRoom:   room,
		BookingTypeTable:  table,
		BookingTypeTicket: ticket,
	}
}

// UnitPrice returns the per-person price for t
func (p PriceTable) UnitPrice(t BookingType) (decimal.Decimal, error) {
	price, ok := p[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownBookingType, t)
	}
	return price, nil
}

// Quote returns unitPrice(t) * numPeople
func (p PriceTable) Quote(t BookingType, numPeople int) (decimal.Decimal, error) {
	if numPeople < 1 {
		return decimal.Zero, errors.New("number of people must be at least 1")
	}
	price, err := p.UnitPrice(t)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromInt(int64(numPeople))), nil
}

// ============================================================================
// STAY EXTENSION
// ============================================================================

// ExtensionPolicy computes the new extendedStayDays from the current value
// and the number of days being added
type ExtensionPolicy func(current *int, added int) int

// ReplaceExtension records only the latest extension: extendedStayDays = added
func ReplaceExtension(_ *int, added int) int {
	return added
}

// AccumulateExtension adds to any earlier extension
func AccumulateExtension(current *int, added int) int {
	if current == nil {
		return added
	}
	return *current + added
}

// StayExtension is the update produced by extending a booking
type StayExtension struct {
	Date             string `json:"date"`
	ExtendedStayDays int    `json:"extendedStayDays"`
}

// ExtendStay pushes the booking end date forward by days. The date always
// moves by exactly days; policy decides what extendedStayDays records.
func ExtendStay(b Booking, days int, policy ExtensionPolicy) (StayExtension, error) {
	if days < 1 {
		return StayExtension{}, ErrInvalidExtension
	}
	if b.BookingStatus == BookingStatusCancelled {
		return StayExtension{}, ErrBookingCancelled
	}
	if policy == nil {
		policy = ReplaceExtension
	}

	current, err := time.Parse(DateLayout, b.Date)
	if err != nil {
		return StayExtension{}, fmt.Errorf("invalid booking date %q: %w", b.Date, err)
	}

	return StayExtension{
		Date:             current.AddDate(0, 0, days).Format(DateLayout),
		ExtendedStayDays: policy(b.ExtendedStayDays, days),
	}, nil
}

// Request converts the extension into an update request
func (e StayExtension) Request() UpdateBookingRequest {
	date := e.Date
	days := e.ExtendedStayDays
	return UpdateBookingRequest{Date: &date, ExtendedStayDays: &days}
}
