package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified caller the external auth service vouches for.
// A nil identity on a request means guest.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// AccessTokenClaims is the typed JWT the auth collaborator issues. This
// service only verifies and reads it; it never mints credentials for clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	IsAdmin bool      `json:"is_admin"`
	jwt.RegisteredClaims
}
