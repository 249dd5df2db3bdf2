package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/credential/models"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Service interface {
	Deactivate(ctx context.Context, token string) (*models.Credential, error)
}

// Handler serves administrative credential revocation.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/credentials/{token}/deactivate", h.HandleDeactivate)
}

type deactivateResponse struct {
	VisitID  string `json:"visit_id"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message"`
}

// HandleDeactivate handles POST /api/v1/credentials/{token}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cred, err := h.service.Deactivate(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.WarnContext(ctx, "credential deactivation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential deactivated",
		"request_id", requestcontext.RequestID(ctx),
		"visit_id", cred.VisitID.String(),
		"admin_id", requestcontext.AdminID(ctx).String(),
	)
	httputil.WriteJSON(w, http.StatusOK, deactivateResponse{
		VisitID:  cred.VisitID.String(),
		IsActive: cred.IsActive,
		Message:  "Credential deactivated.",
	})
}
