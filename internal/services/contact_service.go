package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// ErrContactNotFound indicates an unknown contact message
var ErrContactNotFound = errors.New("contact not found")

// ContactService handles contact form messages
type ContactService struct {
	repo *database.ContactRepository
}

// NewContactService creates a new contact service
func NewContactService(repo *database.ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// Submit stores a new message
func (s *ContactService) Submit(req *models.CreateContactRequest) (*models.Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	contact := &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   models.NormalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.repo.Create(contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// List returns every message, newest first
func (s *ContactService) List() ([]models.Contact, error) {
	return s.repo.List()
}

// Delete removes a message
func (s *ContactService) Delete(id uuid.UUID) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}

// UnseenCount counts messages not yet seen by an admin
func (s *ContactService) UnseenCount() (int64, error) {
	return s.repo.CountUnseen()
}

// MarkAllSeen flags every message seen
func (s *ContactService) MarkAllSeen() (int64, error) {
	return s.repo.MarkAllSeen()
}
