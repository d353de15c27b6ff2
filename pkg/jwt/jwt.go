// Package jwt signs and checks the bearer tokens handed out at login
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

const (
	issuer   = "vartika-funpark"
	audience = "resort-api"
)

var (
	// ErrTokenExpired means the token was well formed and signed by us but is past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers everything else: bad signature, wrong issuer, garbage
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is what a resort token carries besides the registered claims.
// The user id travels as the subject.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into the account id
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Service issues and verifies HS256 tokens with one shared secret
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{key: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateAccessToken signs a token for the account
func (s *Service) GenerateAccessToken(userID uuid.UUID, email string, role models.Role) (string, error) {
	issuedAt := s.now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken returns the claims of a token we signed, or an error
// wrapping ErrTokenExpired or ErrTokenInvalid
func (s *Service) ValidateAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return claims, nil
}
