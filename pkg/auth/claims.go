package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	Email          string
	OrganizationID *uuid.UUID
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to extension and
// dashboard clients.
type AccessTokenClaims struct {
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email,omitempty"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}
