package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
)

// ContactHandler handles the contact form and the admin inbox
type ContactHandler struct {
	contactService *services.ContactService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit handles POST /contactApi/contacts
func (h *ContactHandler) Submit(c *gin.Context) {
	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	contact, err := h.contactService.Submit(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Thank you for contacting us",
		"data":    contact,
	})
}

// List handles GET /contactApi/getcontacts (admin)
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.contactService.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ContactListResponse{Data: contacts})
}

// Delete handles DELETE /contactApi/deletecontact/:id (admin)
func (h *ContactHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid contact id")
		return
	}

	if err := h.contactService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Contact deleted"})
}

// UnseenCount handles GET /contactApi/unseen (admin)
func (h *ContactHandler) UnseenCount(c *gin.Context) {
	count, err := h.contactService.UnseenCount()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UnseenCountResponse{Count: count})
}

// MarkAllSeen handles PUT /contactApi/mark-seen (admin)
func (h *ContactHandler) MarkAllSeen(c *gin.Context) {
	updated, err := h.contactService.MarkAllSeen()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All contacts marked as seen",
		"updated": updated,
	})
}
