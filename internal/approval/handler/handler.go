package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/approval/models"
	visitmodels "gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

// Service defines the administrator decisions on visits.
type Service interface {
	ListPending(ctx context.Context) ([]*visitmodels.VisitRecord, error)
	Approve(ctx context.Context, visitID id.VisitID) (*models.Approval, error)
	Reject(ctx context.Context, visitID id.VisitID) error
	ResendCredential(ctx context.Context, visitID id.VisitID) (*models.Approval, error)
}

// Handler serves the approval queue. Routes must be mounted behind admin auth.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the approval endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/visits/pending", h.HandleListPending)
	r.Post("/api/v1/visits/{id}/approve", h.HandleApprove)
	r.Post("/api/v1/visits/{id}/reject", h.HandleReject)
	r.Post("/api/v1/visits/{id}/resend-credential", h.HandleResendCredential)
}

// HandleListPending handles GET /api/v1/visits/pending.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.ListPending(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list pending visits",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewPendingList(records))
}

// HandleApprove handles POST /api/v1/visits/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID, ok := h.visitID(w, r)
	if !ok {
		return
	}

	approval, err := h.service.Approve(ctx, visitID)
	if err != nil {
		h.logger.WarnContext(ctx, "approve visit failed",
			"request_id", requestcontext.RequestID(ctx),
			"visit_id", visitID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "visit approved",
		"request_id", requestcontext.RequestID(ctx),
		"visit_id", visitID.String(),
		"admin_id", requestcontext.AdminID(ctx).String(),
	)
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(approval, "Visit approved. The QR code was emailed to the visitor."))
}

// HandleReject handles POST /api/v1/visits/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID, ok := h.visitID(w, r)
	if !ok {
		return
	}

	if err := h.service.Reject(ctx, visitID); err != nil {
		h.logger.WarnContext(ctx, "reject visit failed",
			"request_id", requestcontext.RequestID(ctx),
			"visit_id", visitID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "visit rejected",
		"request_id", requestcontext.RequestID(ctx),
		"visit_id", visitID.String(),
		"admin_id", requestcontext.AdminID(ctx).String(),
	)
	httputil.WriteJSON(w, http.StatusOK, models.DecisionResponse{
		VisitID: visitID.String(),
		Status:  string(visitmodels.StatusRejected),
		Message: "Visit rejected. The visitor was notified and the request removed.",
	})
}

// HandleResendCredential handles POST /api/v1/visits/{id}/resend-credential.
func (h *Handler) HandleResendCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID, ok := h.visitID(w, r)
	if !ok {
		return
	}

	approval, err := h.service.ResendCredential(ctx, visitID)
	if err != nil {
		h.logger.WarnContext(ctx, "resend credential failed",
			"request_id", requestcontext.RequestID(ctx),
			"visit_id", visitID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(approval, "A new QR code was emailed to the visitor. Earlier codes no longer work."))
}

func (h *Handler) visitID(w http.ResponseWriter, r *http.Request) (id.VisitID, bool) {
	visitID, err := id.ParseVisitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.VisitID{}, false
	}
	return visitID, true
}

func toDecisionResponse(a *models.Approval, message string) models.DecisionResponse {
	expires := a.CredentialExpiresAt
	return models.DecisionResponse{
		VisitID:             a.Visit.ID.String(),
		Status:              string(a.Visit.Status),
		CredentialExpiresAt: &expires,
		Message:             message,
	}
}
