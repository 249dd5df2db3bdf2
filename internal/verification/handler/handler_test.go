package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatepass/internal/verification/handler/mocks"
	"gatepass/internal/verification/models"
	visitmodels "gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)

	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validBody() map[string]string {
	return map[string]string{
		"email":    "ada@example.com",
		"name":     "Ada",
		"mobile":   "9876543210",
		"purpose":  "Interview",
		"visit_at": "2026-03-14T10:30",
	}
}

func (s *HandlerSuite) TestSendCode() {
	s.Run("valid request returns 200 without the code", func() {
		expires := time.Date(2026, 3, 1, 9, 10, 0, 0, time.UTC)
		s.service.EXPECT().SendCode(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req *models.SendCodeRequest) (*models.SendCodeResponse, error) {
				s.Equal("ada@example.com", req.Email)
				return &models.SendCodeResponse{Message: "OTP sent to your email", ExpiresAt: expires}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/send-code", validBody())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
		s.Equal("OTP sent to your email", (*resp)["message"])
		s.NotContains(*resp, "code")
	})

	s.Run("invalid mobile is rejected before the service", func() {
		body := validBody()
		body["mobile"] = "12345"

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/send-code", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("empty body is a bad request", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/api/v1/visitors/send-code")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("delivery failure maps to 502", func() {
		s.service.EXPECT().SendCode(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDelivery, "failed to send verification code"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/send-code", validBody())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, string(dErrors.CodeDelivery))
	})
}

func (s *HandlerSuite) TestVerify() {
	s.Run("successful verification returns 201", func() {
		visitID := id.NewVisitID()
		visitAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		s.service.EXPECT().VerifyAndRegister(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req *models.VerifyRequest) (*visitmodels.VisitRecord, error) {
				s.Equal("123456", req.Code)
				s.Equal("Ada", req.Name)
				return &visitmodels.VisitRecord{
					ID:      visitID,
					Email:   req.Email,
					Status:  visitmodels.StatusPending,
					VisitAt: visitAt,
				}, nil
			})

		body := validBody()
		body["code"] = "123456"
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/verify", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.RegistrationResponse](s.T(), rr)
		s.Equal(visitID.String(), resp.VisitID)
		s.Equal("pending", resp.Status)
		s.True(visitAt.Equal(resp.VisitAt))
	})

	s.Run("non-numeric code is a validation error", func() {
		body := validBody()
		body["code"] = "12ab56"
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/verify", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("wrong code maps to invalid_code", func() {
		s.service.EXPECT().VerifyAndRegister(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCode, "invalid or expired verification code"))

		body := validBody()
		body["code"] = "000000"
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/verify", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidCode))
	})
}

func (s *HandlerSuite) TestGuardsWrapOnlyTheirRoute() {
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), WithSendCodeGuards(reject)).Register(r)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/send-code", validBody())
	testutil.AssertStatus(s.T(), testutil.DoRequest(r, req), http.StatusTooManyRequests)

	body := validBody()
	body["code"] = "12ab56"
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/visitors/verify", body)
	testutil.AssertStatus(s.T(), testutil.DoRequest(r, req), http.StatusBadRequest)
}
