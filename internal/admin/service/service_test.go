package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"gatepass/internal/admin/models"
	"gatepass/internal/admin/revocation"
	"gatepass/internal/admin/service/mocks"
	"gatepass/internal/admin/store"
	"gatepass/internal/admin/token"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	auditpublisher "gatepass/pkg/platform/audit/publisher"
	auditmemory "gatepass/pkg/platform/audit/store/memory"
	"gatepass/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,TokenIssuer,RevocationList,AuditPublisher

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	store       *store.InMemoryStore
	tokens      *token.JWTService
	revocations *revocation.InMemoryList
	auditStore  *auditmemory.InMemoryStore
	service     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Now())
	s.store = store.NewInMemoryStore()
	s.tokens = token.NewJWTService("test-key", "gatepass-test")
	s.revocations = revocation.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.store, s.tokens, s.revocations,
		WithBcryptCost(bcrypt.MinCost),
		WithTokenTTL(time.Hour),
		WithAuditPublisher(auditpublisher.NewPublisher(s.auditStore)),
	)
}

func (s *ServiceSuite) register(email, password string) *models.Admin {
	admin, err := s.service.Register(s.ctx, &models.RegisterRequest{
		Email:    email,
		Name:     "Desk Officer",
		Password: password,
	})
	s.Require().NoError(err)
	return admin
}

func (s *ServiceSuite) actions() []string {
	events, err := s.auditStore.ListAll(s.ctx)
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) TestRegister() {
	s.Run("hashes the password and normalizes the email", func() {
		admin := s.register("  Desk@Example.com ", "correct horse")
		s.Equal("desk@example.com", admin.Email)
		s.NotEqual("correct horse", admin.PasswordHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("correct horse")))
		s.Contains(s.actions(), string(audit.EventAdminRegistered))
	})

	s.Run("duplicate email is a conflict", func() {
		_, err := s.service.Register(s.ctx, &models.RegisterRequest{
			Email: "desk@example.com", Name: "Other", Password: "another pass",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("short password is a validation error", func() {
		_, err := s.service.Register(s.ctx, &models.RegisterRequest{
			Email: "new@example.com", Name: "New", Password: "short",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestLogin() {
	admin := s.register("desk@example.com", "correct horse")

	s.Run("issues a token the middleware accepts", func() {
		resp, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "DESK@example.com", Password: "correct horse"})
		s.Require().NoError(err)
		s.Equal("Bearer", resp.TokenType)
		s.Equal(admin.ID.String(), resp.Admin.ID)

		claims, err := s.tokens.ValidateToken(resp.AccessToken)
		s.Require().NoError(err)
		s.Equal(admin.ID.String(), claims.AdminID)
		s.WithinDuration(time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, wrongPassword := s.service.Login(s.ctx, &models.LoginRequest{Email: "desk@example.com", Password: "wrong horse"})
		_, unknownEmail := s.service.Login(s.ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})

		s.True(dErrors.HasCode(wrongPassword, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(unknownEmail, dErrors.CodeUnauthorized))
		s.Equal(wrongPassword.Error(), unknownEmail.Error())
	})

	s.Run("denials are audited", func() {
		denied := 0
		for _, action := range s.actions() {
			if action == string(audit.EventAdminLoginDenied) {
				denied++
			}
		}
		s.Equal(2, denied)
	})
}

func (s *ServiceSuite) TestLogout() {
	s.register("desk@example.com", "correct horse")
	resp, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "desk@example.com", Password: "correct horse"})
	s.Require().NoError(err)
	claims, err := s.tokens.ValidateToken(resp.AccessToken)
	s.Require().NoError(err)

	adminID, err := id.ParseAdminID(claims.AdminID)
	s.Require().NoError(err)
	ctx := requestcontext.WithAdminID(s.ctx, adminID)
	ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)

	s.Require().NoError(s.service.Logout(ctx))

	revoked, err := s.revocations.IsTokenRevoked(ctx, claims.JTI)
	s.Require().NoError(err)
	s.True(revoked)
	s.Contains(s.actions(), string(audit.EventAdminLogout))
}

func (s *ServiceSuite) TestLogoutWithoutToken() {
	err := s.service.Logout(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestStoreFailures() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	mockTokens := mocks.NewMockTokenIssuer(ctrl)
	mockRevocations := mocks.NewMockRevocationList(ctrl)
	svc := New(mockStore, mockTokens, mockRevocations, WithBcryptCost(bcrypt.MinCost))

	s.Run("lookup failure is internal", func() {
		mockStore.EXPECT().FindByEmail(gomock.Any(), "desk@example.com").Return(nil, errors.New("db down"))
		_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "desk@example.com", Password: "correct horse"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("token signing failure is internal", func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
		s.Require().NoError(err)
		mockStore.EXPECT().FindByEmail(gomock.Any(), "desk@example.com").
			Return(&models.Admin{ID: id.NewAdminID(), Email: "desk@example.com", PasswordHash: string(hash)}, nil)
		mockTokens.EXPECT().Generate(gomock.Any(), gomock.Any(), defaultTokenTTL).Return(nil, errors.New("no key"))

		_, err = svc.Login(s.ctx, &models.LoginRequest{Email: "desk@example.com", Password: "correct horse"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("revocation failure is internal", func() {
		expiry := time.Now().Add(time.Hour)
		ctx := requestcontext.WithToken(s.ctx, "jti-1", expiry)
		mockRevocations.EXPECT().RevokeToken(gomock.Any(), "jti-1", expiry).Return(errors.New("redis down"))

		err := svc.Logout(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
