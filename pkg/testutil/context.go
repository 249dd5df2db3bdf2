package testutil

import (
	"net/http"
	"time"

	id "gatepass/pkg/domain"
	"gatepass/pkg/requestcontext"
)

// WithAdmin marks the request as authenticated by the given administrator,
// as the admin auth middleware would.
func WithAdmin(req *http.Request, adminID id.AdminID) *http.Request {
	ctx := requestcontext.WithAdminID(req.Context(), adminID)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
