// Package auth guards the administration routes with bearer tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// TokenValidator checks signature and expiry of an admin bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenRevocationChecker reports whether a token id was revoked by logout.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims are the fields the middleware needs from a validated token.
type Claims struct {
	AdminID   string
	JTI       string
	ExpiresAt time.Time
}

var errRevocationCheck = errors.New("revocation check failed")

// RequireAdmin rejects requests without a valid, unrevoked admin bearer token.
// On success the admin id and token id are placed on the request context.
// A nil revocation checker skips the revocation lookup.
func RequireAdmin(validator TokenValidator, revocations TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			adminID, claims, reason, err := authenticate(ctx, r.Header.Get("Authorization"), validator, revocations)
			if err != nil {
				if errors.Is(err, errRevocationCheck) {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				} else {
					logger.WarnContext(ctx, "admin request rejected",
						"request_id", requestcontext.RequestID(ctx),
						"reason", reason,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAdminID(ctx, adminID)
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate returns the admin behind the Authorization header, or a
// domain error and a short reason for the log.
func authenticate(ctx context.Context, header string, validator TokenValidator, revocations TokenRevocationChecker) (id.AdminID, *Claims, string, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return id.AdminID{}, nil, "missing_token", dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return id.AdminID{}, nil, "invalid_token", invalid
	}
	adminID, err := id.ParseAdminID(claims.AdminID)
	if err != nil {
		return id.AdminID{}, nil, "malformed_admin_id", invalid
	}
	if revocations == nil {
		return adminID, claims, "", nil
	}
	if claims.JTI == "" {
		return id.AdminID{}, nil, "missing_jti", invalid
	}
	revoked, err := revocations.IsTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return id.AdminID{}, nil, "", dErrors.Wrap(errors.Join(errRevocationCheck, err), dErrors.CodeInternal, "Failed to validate token")
	}
	if revoked {
		return id.AdminID{}, nil, "revoked", dErrors.New(dErrors.CodeUnauthorized, "Token has been revoked")
	}
	return adminID, claims, "", nil
}
