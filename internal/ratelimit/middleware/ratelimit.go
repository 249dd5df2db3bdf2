// Package middleware applies rate limiting policies to HTTP routes.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gatepass/internal/platform/metrics"
	"gatepass/internal/ratelimit/models"
	"gatepass/pkg/email"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// maxPeekBytes bounds how much of a body is read to find the email field.
const maxPeekBytes = 64 << 10

// Store admits or rejects one request for key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every limiter into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// ByIP limits requests per client address.
func (m *Middleware) ByIP(policy models.Policy) func(http.Handler) http.Handler {
	return m.limit(policy, func(r *http.Request) string {
		return requestcontext.ClientIP(r.Context())
	})
}

// ByEmail limits requests per email address found in the JSON body, so one
// mailbox cannot be flooded with codes from many addresses. Requests without
// an email pass through.
func (m *Middleware) ByEmail(policy models.Policy) func(http.Handler) http.Handler {
	return m.limit(policy, emailFromBody)
}

func (m *Middleware) limit(policy models.Policy, identify func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || policy.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			id := identify(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			result, err := m.store.Allow(ctx, policy.Name+":"+id, policy.Limit, policy.Window)
			if err != nil {
				// Fail open: a limiter outage must not take registration down.
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"policy", policy.Name,
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRateLimited(policy.Name)
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"policy", policy.Name,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// emailFromBody reads the email field and restores the body for the handler.
func emailFromBody(r *http.Request) string {
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), rest), rest}
	if err != nil {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return email.Normalize(payload.Email)
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
