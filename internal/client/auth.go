package client

import (
	"context"
	"net/http"

	"github.com/vartikaresort/funpark-backend/internal/models"
)

// Register creates an account
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/register", public, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token and the user's profile
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", public, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the logged in user's profile
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/user", authenticated, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the fields present in req
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/api/update", authenticated, req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ForgotPassword sends a reset OTP to email
func (c *Client) ForgotPassword(ctx context.Context, email string) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	req := models.ForgotPasswordRequest{Email: email}
	if err := c.doJSON(ctx, http.MethodPost, "/api/forgot-password", public, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP trades a reset OTP for a one-time reset token
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*models.VerifyOTPResponse, error) {
	var resp models.VerifyOTPResponse
	req := models.VerifyOTPRequest{Email: email, OTP: otp}
	if err := c.doJSON(ctx, http.MethodPost, "/api/verify-otp", public, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword sets a new password using a reset token
func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/reset-password", public, req, nil)
}

// RequestPasswordChangeOTP checks the current password and mails a change OTP
func (c *Client) RequestPasswordChangeOTP(ctx context.Context, currentPassword string) (*models.PasswordChangeOTPResponse, error) {
	var resp models.PasswordChangeOTPResponse
	req := models.PasswordChangeOTPRequest{CurrentPassword: currentPassword}
	if err := c.doJSON(ctx, http.MethodPost, "/api/request-password-change-otp", authenticated, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword sets a new password for the logged in user
func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return c.doJSON(ctx, http.MethodPut, "/api/change-password", authenticated, req, nil)
}
