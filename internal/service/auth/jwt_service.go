package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// TokenTypeAccess marks access tokens.
const TokenTypeAccess = "access"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the user.
	// Returns the token string or an error if token generation fails.
	GenerateToken(ctx context.Context, user *domain.User) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// SSOID is the user's employee identifier.
	SSOID string `json:"sso,omitempty"`

	// Role is the user's job role at issue time.
	Role domain.Role `json:"role,omitempty"`

	// TokenType indicates the purpose of the token.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
