package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vartikaresort/funpark-backend/internal/middleware"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
)

// AuthHandler handles account and password HTTP requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	user, err := h.authService.Register(&req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.RegisterResponse{
		Message: "Registration successful",
		User:    *user,
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	resp, err := h.authService.Login(&req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetUser handles GET /api/user
func (h *AuthHandler) GetUser(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	user, err := h.authService.GetProfile(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/update
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
		"user":    user,
	})
}

// ForgotPassword handles POST /api/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	code, err := h.authService.ForgotPassword(req.Email, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Message: "OTP sent to your email",
		OTP:     code,
	})
}

// VerifyOTP handles POST /api/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := models.ValidateOTPCode(req.OTP); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyResetOTP(&req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResetPassword handles POST /api/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	if err := h.authService.ResetPassword(&req, clientInfo(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password reset successful"})
}

// RequestPasswordChangeOTP handles POST /api/request-password-change-otp
func (h *AuthHandler) RequestPasswordChangeOTP(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.PasswordChangeOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	resp, err := h.authService.RequestPasswordChangeOTP(userCtx.UserID, req.CurrentPassword, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChangePassword handles PUT /api/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	if err := h.authService.ChangePassword(userCtx.UserID, &req, clientInfo(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password changed successfully"})
}
