package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gatepass/internal/admin/handler/mocks"
	"gatepass/internal/admin/models"
	"gatepass/internal/admin/revocation"
	"gatepass/internal/admin/token"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	adminmw "gatepass/pkg/platform/middleware/admin"
	authmw "gatepass/pkg/platform/middleware/auth"
	"gatepass/pkg/requestcontext"
	"gatepass/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const registrationKey = "let-me-in"

type fixture struct {
	router      http.Handler
	service     *mocks.MockService
	tokens      *token.JWTService
	revocations *revocation.InMemoryList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		service:     mocks.NewMockService(gomock.NewController(t)),
		tokens:      token.NewJWTService("test-key", "gatepass-test"),
		revocations: revocation.NewInMemory(),
	}
	r := chi.NewRouter()
	New(f.service, logger,
		adminmw.RequireRegistrationKey(registrationKey, logger),
		authmw.RequireAdmin(f.tokens, f.revocations, logger),
	).Register(r)
	f.router = r
	return f
}

func TestHandleRegister(t *testing.T) {
	body := map[string]string{"email": "desk@example.com", "name": "Desk", "password": "correct horse"}

	t.Run("requires the registration key", func(t *testing.T) {
		f := newFixture(t)
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/admin/register", body))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("creates the account", func(t *testing.T) {
		f := newFixture(t)
		adminID := id.NewAdminID()
		f.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req *models.RegisterRequest) (*models.Admin, error) {
				assert.Equal(t, "desk@example.com", req.Email)
				return &models.Admin{ID: adminID, Email: req.Email, Name: req.Name, PasswordHash: "secret-hash"}, nil
			})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/admin/register", body)
		req.Header.Set(adminmw.HeaderRegistrationKey, registrationKey)
		rr := testutil.DoRequest(f.router, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.NotContains(t, rr.Body.String(), "secret-hash")
		resp := testutil.UnmarshalResponse[models.AdminResponse](t, rr)
		assert.Equal(t, adminID.String(), resp.ID)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "an admin with this email already exists"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/admin/register", body)
		req.Header.Set(adminmw.HeaderRegistrationKey, registrationKey)
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func TestHandleLogin(t *testing.T) {
	t.Run("returns the token", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(&models.TokenResponse{AccessToken: "tok", TokenType: "Bearer"}, nil)

		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/admin/login",
			map[string]string{"email": "desk@example.com", "password": "correct horse"}))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[models.TokenResponse](t, rr)
		assert.Equal(t, "tok", resp.AccessToken)
	})

	t.Run("bad credentials are unauthorized", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/admin/login",
			map[string]string{"email": "desk@example.com", "password": "wrong horse"}))

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func TestHandleLogout(t *testing.T) {
	t.Run("requires a bearer token", func(t *testing.T) {
		f := newFixture(t)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodPost, "/api/v1/admin/logout"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("passes the token id to the service", func(t *testing.T) {
		f := newFixture(t)
		adminID := id.NewAdminID()
		issued, err := f.tokens.Generate(adminID, time.Now(), time.Hour)
		require.NoError(t, err)

		f.service.EXPECT().Logout(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
			assert.Equal(t, issued.JTI, requestcontext.TokenID(ctx))
			assert.Equal(t, adminID, requestcontext.AdminID(ctx))
			return nil
		})

		req := testutil.NewRequest(t, http.MethodPost, "/api/v1/admin/logout")
		req.Header.Set("Authorization", "Bearer "+issued.Token)
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusOK(t, rr)
	})

	t.Run("revoked token is refused", func(t *testing.T) {
		f := newFixture(t)
		issued, err := f.tokens.Generate(id.NewAdminID(), time.Now(), time.Hour)
		require.NoError(t, err)
		require.NoError(t, f.revocations.RevokeToken(t.Context(), issued.JTI, issued.ExpiresAt))

		req := testutil.NewRequest(t, http.MethodPost, "/api/v1/admin/logout")
		req.Header.Set("Authorization", "Bearer "+issued.Token)
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
