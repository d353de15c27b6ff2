package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vartikaresort/funpark-backend/internal/middleware"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
)

// MembershipHandler handles membership plan requests
type MembershipHandler struct {
	membershipService *services.MembershipService
	maxUploadBytes    int64
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(membershipService *services.MembershipService, maxUploadBytes int64) *MembershipHandler {
	return &MembershipHandler{
		membershipService: membershipService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// Plans handles GET /api/membership/plans
func (h *MembershipHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.membershipService.Plans()})
}

// Purchase handles POST /api/membership/purchase (multipart form)
func (h *MembershipHandler) Purchase(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.MembershipPurchaseRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c, err)
		return
	}

	screenshot, err := readFormFile(c, "screenshot", h.maxUploadBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	purchase, err := h.membershipService.Purchase(userCtx.UserID, &req, screenshot)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MembershipPurchaseResponse{
		Message:    "Membership purchase submitted. We will verify your payment shortly.",
		Membership: *purchase,
	})
}

// MyMemberships handles GET /api/membership/mine
func (h *MembershipHandler) MyMemberships(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	purchases, err := h.membershipService.ListMine(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberships": purchases})
}
