package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// SubmitContact sends a contact form message
func (c *Client) SubmitContact(ctx context.Context, req models.CreateContactRequest) (*models.Contact, error) {
	var resp struct {
		Data models.Contact `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/contactApi/contacts", public, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListContacts returns every contact message (admin)
func (c *Client) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var resp models.ContactListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/contactApi/getcontacts", authenticated, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteContact removes a contact message (admin)
func (c *Client) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/contactApi/deletecontact/"+id.String(), authenticated, nil, nil)
}

// UnseenContacts returns how many messages are unseen (admin)
func (c *Client) UnseenContacts(ctx context.Context) (int64, error) {
	var resp models.UnseenCountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/contactApi/unseen", authenticated, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// MarkContactsSeen flags every message as seen and returns how many changed
func (c *Client) MarkContactsSeen(ctx context.Context) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/contactApi/mark-seen", authenticated, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}
