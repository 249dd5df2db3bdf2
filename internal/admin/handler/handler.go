package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/admin/models"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Admin, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	Logout(ctx context.Context) error
}

// Middleware wraps a route with a guard.
type Middleware = func(http.Handler) http.Handler

// Handler serves admin account endpoints.
type Handler struct {
	service           Service
	logger            *slog.Logger
	registrationGuard Middleware
	authGuard         Middleware
	loginGuards       []Middleware
}

type Option func(*Handler)

// WithLoginGuards wraps the login route, typically with a rate limiter.
func WithLoginGuards(guards ...Middleware) Option {
	return func(h *Handler) {
		h.loginGuards = append(h.loginGuards, guards...)
	}
}

// New builds the handler. registrationGuard protects account creation and
// authGuard protects logout.
func New(service Service, logger *slog.Logger, registrationGuard, authGuard Middleware, opts ...Option) *Handler {
	h := &Handler{
		service:           service,
		logger:            logger,
		registrationGuard: registrationGuard,
		authGuard:         authGuard,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.registrationGuard).Post("/api/v1/admin/register", h.HandleRegister)
	r.With(h.loginGuards...).Post("/api/v1/admin/login", h.HandleLogin)
	r.With(h.authGuard).Post("/api/v1/admin/logout", h.HandleLogout)
}

// HandleRegister handles POST /api/v1/admin/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	admin, err := h.service.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "admin registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin registered",
		"request_id", requestID,
		"admin_id", admin.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.NewAdminResponse(admin))
}

// HandleLogin handles POST /api/v1/admin/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type logoutResponse struct {
	Message string `json:"message"`
}

// HandleLogout handles POST /api/v1/admin/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx); err != nil {
		h.logger.ErrorContext(ctx, "admin logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, logoutResponse{Message: "Logged out."})
}
