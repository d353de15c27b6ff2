package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/utils"
)

// Audit actions written to audit_logs
const (
	ActionRegister             = "register"
	ActionLogin                = "login"
	ActionLoginFailed          = "login_failed"
	ActionPasswordResetRequest = "password_reset_request"
	ActionPasswordResetVerify  = "password_reset_verify"
	ActionPasswordReset        = "password_reset"
	ActionPasswordChange       = "password_change"
	ActionRateLimited          = "rate_limit_violation"
	ActionBookingUpdate        = "booking_update"
	ActionPaymentProof         = "payment_proof"
)

// AuditService appends security and admin events to audit_logs. When
// disabled every call is a no-op.
type AuditService struct {
	db      database.DB
	enabled bool
}

func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{db: db, enabled: enabled}
}

// AuditEvent is one audit_logs row
type AuditEvent struct {
	Actor      *uuid.UUID // nil before login
	Action     string
	EntityType string // user, booking or rate_limit
	EntityID   *uuid.UUID
	Client     ClientInfo
	Details    map[string]interface{}
}

// LogLogin records a successful or failed login. userID is nil when the email is unknown.
func (s *AuditService) LogLogin(userID *uuid.UUID, email string, client ClientInfo, failure string) error {
	event := s.userEvent(userID, ActionLogin, client, map[string]interface{}{
		"email":       email,
		"device_info": utils.ParseUserAgent(client.UserAgent),
	})
	if failure != "" {
		event.Action = ActionLoginFailed
		event.Details["reason"] = failure
	}
	return s.Record(event)
}

func (s *AuditService) LogRegister(userID uuid.UUID, email string, client ClientInfo) error {
	return s.Record(s.userEvent(&userID, ActionRegister, client, map[string]interface{}{
		"email":       email,
		"device_info": utils.ParseUserAgent(client.UserAgent),
	}))
}

// LogPasswordEvent records one step of the reset or change flows
func (s *AuditService) LogPasswordEvent(userID *uuid.UUID, action, email string, client ClientInfo, success bool) error {
	return s.Record(s.userEvent(userID, action, client, map[string]interface{}{
		"email":   email,
		"success": success,
	}))
}

func (s *AuditService) LogRateLimitViolation(email string, client ClientInfo, limit *RateLimitError) error {
	return s.Record(AuditEvent{
		Action:     ActionRateLimited,
		EntityType: "rate_limit",
		Client:     client,
		Details: map[string]interface{}{
			"email":       email,
			"limit_type":  limit.Type,
			"retry_after": limit.RetryAfter,
		},
	})
}

// LogBookingUpdate records an admin edit; changes holds the before and after of what moved
func (s *AuditService) LogBookingUpdate(adminID, bookingID uuid.UUID, changes map[string]interface{}, client ClientInfo) error {
	return s.Record(AuditEvent{
		Actor:      &adminID,
		Action:     ActionBookingUpdate,
		EntityType: "booking",
		EntityID:   &bookingID,
		Client:     client,
		Details:    changes,
	})
}

// LogPaymentProof records a guest attaching a Fonepay proof to a booking
func (s *AuditService) LogPaymentProof(userID, bookingID uuid.UUID, transactionID, screenshotRef string) error {
	return s.Record(AuditEvent{
		Actor:      &userID,
		Action:     ActionPaymentProof,
		EntityType: "booking",
		EntityID:   &bookingID,
		Details: map[string]interface{}{
			"transaction_id": transactionID,
			"screenshot":     screenshotRef,
		},
	})
}

func (s *AuditService) userEvent(userID *uuid.UUID, action string, client ClientInfo, details map[string]interface{}) AuditEvent {
	return AuditEvent{
		Actor:      userID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		Client:     client,
		Details:    details,
	}
}

// Record writes event
func (s *AuditService) Record(event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	details := []byte("{}")
	if len(event.Details) > 0 {
		encoded, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = encoded
	}

	if _, err := s.db.Exec(`
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		nullUUID(event.Actor),
		event.Action,
		event.EntityType,
		nullUUID(event.EntityID),
		nullString(event.Client.IP),
		nullString(event.Client.UserAgent),
		details,
	); err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// CleanupOldAuditLogs drops rows older than retention
func (s *AuditService) CleanupOldAuditLogs(retention time.Duration) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM audit_logs WHERE created_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}
	return result.RowsAffected()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
