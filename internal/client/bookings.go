package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// CreateBooking submits a booking and returns its server summary
func (c *Client) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.CreatedBooking, error) {
	var resp models.CreateBookingResponse
	if err := c.doJSON(ctx, http.MethodPost, "/bookApi/bookings", authenticated, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Booking, nil
}

// VerifyPayment uploads the Fonepay proof for a booking
func (c *Client) VerifyPayment(ctx context.Context, bookingID uuid.UUID, transactionID string, screenshot FileUpload) (*models.VerifyPaymentResponse, error) {
	var resp models.VerifyPaymentResponse
	fields := []formField{
		{name: "bookingId", value: bookingID.String()},
		{name: "transactionId", value: transactionID},
	}
	if err := c.doMultipart(ctx, "/bookApi/verify-payment", fields, "screenshot", screenshot, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBookings returns every booking (admin). FilterAll or "" returns all.
func (c *Client) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	path := "/bookApi/bookings"
	if filter != "" && filter != models.FilterAll {
		path += "?status=" + url.QueryEscape(string(filter))
	}

	var bookings []models.Booking
	if err := c.doJSON(ctx, http.MethodGet, path, authenticated, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBooking applies an admin edit and returns the stored booking
func (c *Client) UpdateBooking(ctx context.Context, id uuid.UUID, req models.UpdateBookingRequest) (*models.Booking, error) {
	var booking models.Booking
	if err := c.doJSON(ctx, http.MethodPut, "/bookApi/bookings/"+id.String(), authenticated, req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// MyBookings returns the logged in user's bookings
func (c *Client) MyBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.doJSON(ctx, http.MethodGet, "/bookApi/my-bookings", authenticated, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// DashboardStats returns the admin counters
func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var resp models.DashboardStatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/status/dashboard-stats", authenticated, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}
