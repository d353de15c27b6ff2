package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/services"
	"github.com/vartikaresort/funpark-backend/internal/storage"
	"github.com/vartikaresort/funpark-backend/internal/utils"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorMapping struct {
	target error
	status int
	word   string
	code   string
}

var errorMappings = []errorMapping{
	{storage.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", "FILE_TOO_LARGE"},
	{services.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch", "AMOUNT_MISMATCH"},
	{services.ErrPlanAmountMismatch, http.StatusBadRequest, "amount_mismatch", "AMOUNT_MISMATCH"},
	{services.ErrMissingTransactionID, http.StatusBadRequest, "validation_error", "MISSING_TRANSACTION_ID"},
	{services.ErrProofNotRequired, http.StatusBadRequest, "proof_not_required", "PROOF_NOT_REQUIRED"},
	{services.ErrEmptyUpdate, http.StatusBadRequest, "validation_error", "EMPTY_UPDATE"},
	{models.ErrInvalidExtension, http.StatusBadRequest, "validation_error", "INVALID_EXTENSION"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "INVALID_TRANSITION"},
	{models.ErrBookingCancelled, http.StatusConflict, "booking_cancelled", "BOOKING_CANCELLED"},
	{models.ErrExtensionDateMismatch, http.StatusBadRequest, "validation_error", "EXTENSION_DATE_MISMATCH"},
	{models.ErrNoPaymentRecorded, http.StatusConflict, "no_payment", "NO_PAYMENT_RECORDED"},
	{models.ErrPaymentProofMissing, http.StatusConflict, "proof_missing", "PAYMENT_PROOF_MISSING"},
	{services.ErrBookingNotFound, http.StatusNotFound, "not_found", "BOOKING_NOT_FOUND"},
	{services.ErrContactNotFound, http.StatusNotFound, "not_found", "CONTACT_NOT_FOUND"},
	{services.ErrUserNotFound, http.StatusNotFound, "not_found", "USER_NOT_FOUND"},
	{services.ErrNotBookingOwner, http.StatusForbidden, "forbidden", "NOT_BOOKING_OWNER"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "INVALID_CREDENTIALS"},
	{services.ErrWrongPassword, http.StatusUnauthorized, "wrong_password", "WRONG_PASSWORD"},
	{services.ErrEmailTaken, http.StatusConflict, "email_taken", "EMAIL_TAKEN"},
	{services.ErrInvalidResetToken, http.StatusBadRequest, "invalid_token", "INVALID_RESET_TOKEN"},
	{services.ErrOTPInvalid, http.StatusBadRequest, "invalid_otp", "OTP_INVALID"},
	{services.ErrOTPExpired, http.StatusBadRequest, "invalid_otp", "OTP_EXPIRED"},
	{services.ErrOTPAlreadyUsed, http.StatusBadRequest, "invalid_otp", "OTP_ALREADY_USED"},
	{services.ErrNoOTPFound, http.StatusBadRequest, "invalid_otp", "OTP_NOT_FOUND"},
	{services.ErrMaxAttemptsExceeded, http.StatusTooManyRequests, "invalid_otp", "OTP_MAX_ATTEMPTS"},
}

// respondError writes the error body for err, logging anything unexpected
func respondError(c *gin.Context, err error) {
	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     rateErr.Message,
			"code":        "RATE_LIMITED",
			"retry_after": rateErr.RetryAfter,
			"type":        rateErr.Type,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{Error: m.word, Message: err.Error(), Code: m.code})
			return
		}
	}

	if services.IsInputError(err) {
		badRequest(c, err.Error())
		return
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong. Please try again later.",
		Code:    "INTERNAL_ERROR",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    "VALIDATION_FAILED",
	})
}

func invalidBody(c *gin.Context, err error) {
	badRequest(c, "Invalid request body: "+err.Error())
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IP:        utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}
