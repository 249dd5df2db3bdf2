package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/gate/models"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Service interface {
	Scan(ctx context.Context, token string) (*models.ScanResult, error)
}

// Handler serves the gate scanner endpoint. Routes must be mounted behind admin auth.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/gate/scan", h.HandleScan)
}

type scanResponse struct {
	*models.ScanResult
	Message string `json:"message"`
}

// HandleScan handles POST /api/v1/gate/scan.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Scan(ctx, req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "gate scan recorded",
		"request_id", requestID,
		"event", string(result.Event),
		"device", requestcontext.Device(ctx),
	)
	message := "Entry logged successfully"
	if result.Event == models.EventExit {
		message = "Exit logged successfully"
	}
	httputil.WriteJSON(w, http.StatusOK, scanResponse{ScanResult: result, Message: message})
}
