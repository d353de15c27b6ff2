package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// ContactRepository stores contact form messages
type ContactRepository struct {
	db DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts an unseen message
func (r *ContactRepository) Create(contact *models.Contact) error {
	contact.ID = uuid.New()
	contact.Seen = false
	contact.CreatedAt = time.Now()

	query := `
		INSERT INTO contacts (id, name, email, phone, subject, message, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`

	_, err := r.db.Exec(query, contact.ID, contact.Name, contact.Email, contact.Phone, contact.Subject, contact.Message, contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// List returns every message, newest first
func (r *ContactRepository) List() ([]models.Contact, error) {
	rows, err := r.db.Query(`
		SELECT id, name, email, phone, subject, message, seen, created_at
		FROM contacts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message, &c.Seen, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Delete removes a message
func (r *ContactRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnseen counts messages an admin has not looked at
func (r *ContactRepository) CountUnseen() (int64, error) {
	var count int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE seen = FALSE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unseen contacts: %w", err)
	}
	return count, nil
}

// MarkAllSeen flags every message as seen and returns how many changed
func (r *ContactRepository) MarkAllSeen() (int64, error) {
	result, err := r.db.Exec(`UPDATE contacts SET seen = TRUE WHERE seen = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark contacts seen: %w", err)
	}
	return result.RowsAffected()
}
