// Package admin guards administrator self-registration.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// HeaderRegistrationKey carries the shared key that gates admin self-registration.
const HeaderRegistrationKey = "X-Registration-Key"

// RequireRegistrationKey admits only requests presenting expectedKey.
// An empty expectedKey closes registration entirely.
func RequireRegistrationKey(expectedKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expectedKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderRegistrationKey))
			if len(want) > 0 && subtle.ConstantTimeCompare(got, want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin registration refused",
				"request_id", requestcontext.RequestID(ctx),
				"key_present", len(got) > 0,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "registration key required"))
		})
	}
}
