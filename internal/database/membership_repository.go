package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// MembershipRepository stores membership purchases
type MembershipRepository struct {
	db DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create inserts a purchase awaiting verification
func (r *MembershipRepository) Create(purchase *models.MembershipPurchase) error {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	if purchase.Status == "" {
		purchase.Status = models.MembershipPendingVerification
	}
	purchase.CreatedAt = time.Now()

	query := `
		INSERT INTO memberships (id, user_id, plan_type, amount, transaction_id, screenshot_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		query,
		purchase.ID, purchase.UserID, purchase.PlanType, purchase.Amount,
		purchase.TransactionID, purchase.ScreenshotRef, purchase.Status, purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// ListByUser returns a user's purchases, newest first
func (r *MembershipRepository) ListByUser(userID uuid.UUID) ([]models.MembershipPurchase, error) {
	query := `
		SELECT id, user_id, plan_type, amount, transaction_id, screenshot_ref, status, created_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	purchases := []models.MembershipPurchase{}
	for rows.Next() {
		var p models.MembershipPurchase
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.PlanType, &p.Amount,
			&p.TransactionID, &p.ScreenshotRef, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
