package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/middleware"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
	"github.com/vartikaresort/funpark-backend/internal/storage"
)

// BookingHandler handles booking, payment proof and dashboard requests
type BookingHandler struct {
	bookingService *services.BookingService
	maxUploadBytes int64
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService, maxUploadBytes int64) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateBooking handles POST /bookApi/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	created, err := h.bookingService.Create(userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateBookingResponse{
		Message: "Booking created successfully",
		Booking: *created,
	})
}

// VerifyPayment handles POST /bookApi/verify-payment (multipart form)
func (h *BookingHandler) VerifyPayment(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := uuid.Parse(c.PostForm("bookingId"))
	if err != nil {
		badRequest(c, "bookingId must be a valid id")
		return
	}

	screenshot, err := readFormFile(c, "screenshot", h.maxUploadBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	record, err := h.bookingService.VerifyPayment(userCtx.UserID, bookingID, c.PostForm("transactionId"), screenshot)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyPaymentResponse{
		Message:   "Payment submitted for verification",
		BookingID: bookingID,
		Payment:   record,
	})
}

// ListBookings handles GET /bookApi/bookings (admin). An optional status
// query parameter narrows the list.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	filter, err := models.ParseBookingFilter(c.Query("status"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	bookings, err := h.bookingService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.FilterBookings(bookings, filter))
}

// UpdateBooking handles PUT /bookApi/bookings/:id (admin)
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return
	}

	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	booking, err := h.bookingService.Update(userCtx.UserID, bookingID, &req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// MyBookings handles GET /bookApi/my-bookings
func (h *BookingHandler) MyBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookingService.ListMine(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// DashboardStats handles GET /status/dashboard-stats (admin)
func (h *BookingHandler) DashboardStats(c *gin.Context) {
	stats, err := h.bookingService.Stats()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DashboardStatsResponse{Stats: *stats})
}

// readFormFile reads a multipart file field, refusing anything over maxBytes.
// A missing field yields an empty slice so the service reports it.
func readFormFile(c *gin.Context, field string, maxBytes int64) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, services.NewInputError(fmt.Errorf("invalid %s upload: %w", field, err))
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", storage.ErrFileTooLarge, header.Size, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return io.ReadAll(f)
}
