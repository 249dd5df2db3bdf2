package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/verification/models"
	visitmodels "gatepass/internal/visit/models"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// Service defines the visitor self-registration operations.
type Service interface {
	SendCode(ctx context.Context, req *models.SendCodeRequest) (*models.SendCodeResponse, error)
	VerifyAndRegister(ctx context.Context, req *models.VerifyRequest) (*visitmodels.VisitRecord, error)
}

// Handler serves the public visitor endpoints.
type Handler struct {
	service        Service
	logger         *slog.Logger
	sendCodeGuards []func(http.Handler) http.Handler
	verifyGuards   []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithSendCodeGuards wraps the send-code route, typically with rate limiters.
func WithSendCodeGuards(guards ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.sendCodeGuards = append(h.sendCodeGuards, guards...)
	}
}

func WithVerifyGuards(guards ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.verifyGuards = append(h.verifyGuards, guards...)
	}
}

// New constructs a visitor registration handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the visitor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.sendCodeGuards...).Post("/api/v1/visitors/send-code", h.HandleSendCode)
	r.With(h.verifyGuards...).Post("/api/v1/visitors/verify", h.HandleVerify)
}

// HandleSendCode handles POST /api/v1/visitors/send-code.
func (h *Handler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SendCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.SendCode(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to send verification code",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleVerify handles POST /api/v1/visitors/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.VerifyAndRegister(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "visitor verification failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "visitor registered",
		"request_id", requestID,
		"visit_id", rec.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, toRegistrationResponse(rec))
}

func toRegistrationResponse(rec *visitmodels.VisitRecord) models.RegistrationResponse {
	return models.RegistrationResponse{
		VisitID: rec.ID.String(),
		Email:   rec.Email,
		Status:  string(rec.Status),
		VisitAt: rec.VisitAt,
		Message: "Registration received. You will be notified by email once an administrator reviews your visit.",
	}
}
