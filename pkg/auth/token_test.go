package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/pkg/errors"
)

func TestMintAndParseAccessToken(t *testing.T) {
	userID := uuid.New()
	identity := Identity{UserID: userID, IsAdmin: true}

	token, err := MintAccessToken("secret", "storefront", identity, 30*time.Minute)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	parsed, err := ParseAccessToken("secret", "storefront", token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if parsed.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, parsed.UserID)
	}
	if !parsed.IsAdmin {
		t.Fatal("admin flag not preserved")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	token, err := MintAccessToken("secret", "storefront", Identity{UserID: uuid.New()}, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken("other-secret", "storefront", token); err == nil {
		t.Fatal("expected invalid signature error")
	}
	if _, err := ParseAccessToken("secret", "storefront", token+"x"); err == nil {
		t.Fatal("expected tampered token error")
	}
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	token, err := MintAccessToken("secret", "someone-else", Identity{UserID: uuid.New()}, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken("secret", "storefront", token)
	if err == nil {
		t.Fatal("expected issuer mismatch error")
	}
	if !errors.HasCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken("secret", "storefront", Identity{UserID: uuid.New()}, -time.Minute)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken("secret", "storefront", token); err == nil {
		t.Fatal("expected expiration error")
	}
}

func TestParseAccessTokenNilSubject(t *testing.T) {
	token, err := MintAccessToken("secret", "storefront", Identity{}, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken("secret", "storefront", token); err == nil {
		t.Fatal("expected missing subject error")
	}
}
