package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatepass/internal/report/handler/mocks"
	"gatepass/internal/report/models"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Renderer

type HandlerSuite struct {
	suite.Suite
	service  *mocks.MockService
	renderer *mocks.MockRenderer
	router   http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.renderer = mocks.NewMockRenderer(ctrl)
	r := chi.NewRouter()
	New(s.service, s.renderer, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func report() *models.Report {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	return &models.Report{
		From:    day,
		To:      day.Add(24*time.Hour - time.Millisecond),
		Status:  models.FilterCompleted,
		Rows:    []models.Row{{Name: "Ada", Email: "ada@example.com", Status: models.RowCompleted}},
		Summary: models.Summary{Total: 1, Completed: 1},
	}
}

func (s *HandlerSuite) TestEvents() {
	s.Run("passes the parsed query to the service", func() {
		s.service.EXPECT().BuildReport(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, q models.Query) (*models.Report, error) {
				s.Equal(models.FilterCompleted, q.Status)
				s.Equal("ada", q.Search)
				s.Equal(23, q.To.Hour())
				return report(), nil
			})

		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/visits/events?startDate=2026-03-14&endDate=2026-03-14&status=completed&search=ada")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.Report](s.T(), rr)
		s.Equal(1, resp.Summary.Completed)
		s.Require().Len(resp.Rows, 1)
	})

	s.Run("missing dates are a validation error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/visits/events?startDate=2026-03-14"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestDownload() {
	s.Run("serves the rendered pdf as an attachment", func() {
		s.service.EXPECT().BuildReport(gomock.Any(), gomock.Any()).Return(report(), nil)
		s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).
			DoAndReturn(func(w io.Writer, _ *models.Report) error {
				_, err := w.Write([]byte("%PDF-1.3 test"))
				return err
			})
		s.renderer.EXPECT().ContentType().Return("application/pdf")

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/visits/report.pdf?startDate=2026-03-14&endDate=2026-03-14"))

		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("application/pdf", rr.Header().Get("Content-Type"))
		s.Equal("attachment; filename=visitor-report-2026-03-14-to-2026-03-14.pdf", rr.Header().Get("Content-Disposition"))
		s.Equal("%PDF-1.3 test", rr.Body.String())
	})

	s.Run("render failure is an internal error", func() {
		s.service.EXPECT().BuildReport(gomock.Any(), gomock.Any()).Return(report(), nil)
		s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(errors.New("font missing"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/visits/report.pdf?startDate=2026-03-14&endDate=2026-03-14"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	})
}
