package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/report/models"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requestcontext"
)

type Service interface {
	BuildReport(ctx context.Context, q models.Query) (*models.Report, error)
}

// Renderer lays a report out as a downloadable document.
type Renderer interface {
	ContentType() string
	Render(w io.Writer, report *models.Report) error
}

// Handler serves visit activity queries. Routes must be mounted behind admin auth.
type Handler struct {
	service  Service
	renderer Renderer
	logger   *slog.Logger
}

func New(service Service, renderer Renderer, logger *slog.Logger) *Handler {
	return &Handler{service: service, renderer: renderer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/visits/events", h.HandleEvents)
	r.Get("/api/v1/visits/report.pdf", h.HandleDownload)
}

// HandleEvents handles GET /api/v1/visits/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleDownload handles GET /api/v1/visits/report.pdf.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	// Render fully before writing so a layout failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, report); err != nil {
		h.logger.ErrorContext(ctx, "failed to render report",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render report"))
		return
	}

	filename := fmt.Sprintf("visitor-report-%s-to-%s.pdf", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	ctx := r.Context()
	values := r.URL.Query()
	q, err := models.QueryRequest{
		StartDate: values.Get("startDate"),
		EndDate:   values.Get("endDate"),
		Status:    values.Get("status"),
		Search:    values.Get("search"),
	}.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}

	report, err := h.service.BuildReport(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build report",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	return report, true
}
