package models

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contact is a message left through the public contact form
type Contact struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateContactRequest is the body of POST /contactApi/contacts
type CreateContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// Validate checks the request
func (r *CreateContactRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message cannot be empty")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email address")
	}
	return nil
}

// ContactListResponse wraps the admin contact list
type ContactListResponse struct {
	Data []Contact `json:"data"`
}

// UnseenCountResponse is the response of GET /contactApi/unseen
type UnseenCountResponse struct {
	Count int64 `json:"count"`
}

// DashboardStats are the admin dashboard counters
type DashboardStats struct {
	TotalUsers             int64 `json:"totalUsers"`
	TotalPendingBookings   int64 `json:"totalPendingBookings"`
	TotalConfirmedBookings int64 `json:"totalConfirmedBookings"`
}

// DashboardStatsResponse is the response of GET /status/dashboard-stats
type DashboardStatsResponse struct {
	Stats DashboardStats `json:"stats"`
}
