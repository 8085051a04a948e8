package middleware

import (
	"net/http"
	"strings"

	"github.com/lunamercado/storefront-backend/api/responses"
	pkgauth "github.com/lunamercado/storefront-backend/pkg/auth"
	"github.com/lunamercado/storefront-backend/pkg/config"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// verified identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := pkgauth.ParseAccessToken(cfg.Secret, cfg.Issuer, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), identity.UserID, identity.IsAdmin)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth parses a bearer token when one is present but lets guest
// requests through. Checkout accepts both.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := pkgauth.ParseAccessToken(cfg.Secret, cfg.Issuer, token)
			if err != nil {
				// A present-but-bad token is rejected, not downgraded to guest.
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), identity.UserID, identity.IsAdmin)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates staff-only surfaces: adjustments, order transitions,
// stock detail.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFromContext(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
