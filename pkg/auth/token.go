package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/errors"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintAccessToken signs an access token for the given identity. Production
// tokens come from the auth collaborator; this exists for tooling and tests.
func MintAccessToken(secret, issuer string, identity Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New(errors.CodeInternal, "jwt secret is not configured")
	}
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		UserID:  identity.UserID,
		IsAdmin: identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "sign access token")
	}
	return signed, nil
}

// ParseAccessToken verifies the signature, method, issuer and expiry of a
// bearer token and returns the identity it carries.
func ParseAccessToken(secret, issuer, token string) (*Identity, error) {
	if secret == "" {
		return nil, errors.New(errors.CodeInternal, "jwt secret is not configured")
	}
	var claims AccessTokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.New(errors.CodeUnauthorized, "invalid access token")
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "access token has no subject")
	}
	return &Identity{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}
