package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// AccountContextKey holds the *models.User loaded by RequireActiveAccount
const AccountContextKey = "account"

// AccountLoader is the part of the user repository the check needs
type AccountLoader interface {
	GetByID(id uuid.UUID) (*models.User, error)
}

// RequireActiveAccount re-reads the caller from the database so a token
// outlives neither a deleted account nor a role change. Mount after AuthMiddleware.
func RequireActiveAccount(accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetUserContext(c)
		if !ok {
			reject(c, errNoCaller)
			return
		}

		user, err := accounts.GetByID(caller.UserID)
		switch {
		case errors.Is(err, database.ErrNotFound):
			reject(c, errAccountGone)
			return
		case err != nil:
			logrus.WithError(err).WithField("user_id", caller.UserID).Error("Failed to load account")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to verify account",
			})
			return
		case user.Role != caller.Role:
			reject(c, errRoleChanged)
			return
		}

		c.Set(AccountContextKey, user)
		c.Next()
	}
}
