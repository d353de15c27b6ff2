package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/metrics"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/pkg/jwt"
)

// UserContextKey is where the verified caller lives in the gin context
const UserContextKey = "user"

// UserContext is the caller as read from a verified token
type UserContext struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

func (u UserContext) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// rejection is a refusal the client can classify by code
type rejection struct {
	status  int
	word    string
	code    string
	message string
}

var (
	errNoHeader = rejection{http.StatusUnauthorized, "unauthorized", "MISSING_AUTH_HEADER",
		"Authorization header is required"}
	errBadScheme = rejection{http.StatusUnauthorized, "unauthorized", "INVALID_AUTH_FORMAT",
		"Invalid authorization header format. Expected: Bearer <token>"}
	errExpired = rejection{http.StatusUnauthorized, "token_expired", "TOKEN_EXPIRED",
		"Your session has expired. Please log in again."}
	errBadToken = rejection{http.StatusUnauthorized, "invalid_token", "INVALID_TOKEN",
		"Invalid access token"}
	errNoCaller = rejection{http.StatusUnauthorized, "unauthorized", "MISSING_USER_CONTEXT",
		"User context not found. Auth middleware may not be applied."}
	errForbidden = rejection{http.StatusForbidden, "forbidden", "INSUFFICIENT_PERMISSIONS",
		"You don't have permission to access this resource"}
	errAccountGone = rejection{http.StatusUnauthorized, "unauthorized", "ACCOUNT_NOT_FOUND",
		"Account no longer exists"}
	errRoleChanged = rejection{http.StatusUnauthorized, "unauthorized", "ROLE_CHANGED",
		"Your permissions changed. Please log in again."}
)

func reject(c *gin.Context, r rejection) {
	metrics.TrackAuthRejected(r.code)
	logrus.WithFields(logrus.Fields{
		"path": c.Request.URL.Path,
		"ip":   c.ClientIP(),
		"code": r.code,
	}).Warn("Request rejected")

	c.AbortWithStatusJSON(r.status, gin.H{
		"error":   r.word,
		"message": r.message,
		"code":    r.code,
	})
}

// bearerToken pulls the token out of "Authorization: Bearer <token>"
func bearerToken(header string) (string, *rejection) {
	if header == "" {
		return "", &errNoHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || scheme != "Bearer" || token == "" {
		return "", &errBadScheme
	}
	return token, nil
}

// AuthMiddleware admits requests carrying a valid access token and stores
// the caller under UserContextKey
func AuthMiddleware(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, refused := bearerToken(c.GetHeader("Authorization"))
		if refused != nil {
			reject(c, *refused)
			return
		}

		claims, err := tokens.ValidateAccessToken(raw)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				reject(c, errExpired)
			} else {
				reject(c, errBadToken)
			}
			return
		}
		userID, _ := claims.UserID()

		c.Set(UserContextKey, UserContext{UserID: userID, Email: claims.Email, Role: claims.Role})
		c.Next()
	}
}

// RequireRole lets through callers holding any of roles. Must follow AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetUserContext(c)
		if !ok {
			reject(c, errNoCaller)
			return
		}
		for _, role := range roles {
			if caller.Role == role {
				c.Next()
				return
			}
		}
		reject(c, errForbidden)
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// GetUserContext returns the caller stored by AuthMiddleware
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, ok := c.Get(UserContextKey)
	if !ok {
		return UserContext{}, false
	}
	caller, ok := value.(UserContext)
	return caller, ok
}

// MustGetUserContext is GetUserContext for handlers mounted behind AuthMiddleware
func MustGetUserContext(c *gin.Context) UserContext {
	caller, ok := GetUserContext(c)
	if !ok {
		panic("middleware: no user context; is AuthMiddleware mounted?")
	}
	return caller
}
