package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/utils"
)

// ResetTokenRepository stores one-time password reset tokens. Only the
// SHA-256 hash of a token is persisted.
type ResetTokenRepository struct {
	db DB
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{
		db: db,
	}
}

// Store saves a reset token for a user, invalidating any earlier unused token
func (r *ResetTokenRepository) Store(userID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE password_reset_tokens SET used = TRUE WHERE user_id = $1 AND used = FALSE`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}

	query := `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
	`

	if _, err := r.db.Exec(query, userID, utils.HashSecret(token), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// Consume marks a token used. It fails with ErrNotFound when the token is
// unknown, expired or already used.
func (r *ResetTokenRepository) Consume(userID uuid.UUID, token string) error {
	query := `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE user_id = $1 AND token_hash = $2 AND used = FALSE AND expires_at > $3
	`

	result, err := r.db.Exec(query, userID, utils.HashSecret(token), time.Now())
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes tokens that can no longer be used
func (r *ResetTokenRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM password_reset_tokens WHERE expires_at < NOW() OR used = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}
