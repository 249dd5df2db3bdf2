package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatepass/internal/credential/models"
	"gatepass/internal/credential/service/mocks"
	"gatepass/internal/credential/store"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	auditpublisher "gatepass/pkg/platform/audit/publisher"
	auditmemory "gatepass/pkg/platform/audit/store/memory"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	store      *store.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.store, WithAuditPublisher(auditpublisher.NewPublisher(s.auditStore)))
}

func (s *ServiceSuite) TestIssue() {
	visitID := id.NewVisitID()
	cred, err := s.service.Issue(s.ctx, visitID, "ada@example.com")
	s.Require().NoError(err)

	s.True(cred.IsActive)
	s.Equal(s.now.Add(24*time.Hour), cred.ExpiresAt)

	events, err := s.auditStore.ListByVisit(s.ctx, visitID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventCredentialIssued), events[0].Action)
}

func (s *ServiceSuite) TestResolveActive() {
	visitID := id.NewVisitID()
	cred, err := s.service.Issue(s.ctx, visitID, "ada@example.com")
	s.Require().NoError(err)

	s.Run("active token resolves", func() {
		got, err := s.service.ResolveActive(s.ctx, cred.Token)
		s.Require().NoError(err)
		s.Equal(visitID, got.VisitID)
	})

	s.Run("unknown and empty tokens are invalid credentials", func() {
		_, err := s.service.ResolveActive(s.ctx, "bogus")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
		_, err = s.service.ResolveActive(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	s.Run("expired token is an invalid credential", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(25*time.Hour))
		_, err := s.service.ResolveActive(later, cred.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	s.Run("superseded token is an invalid credential", func() {
		fresh, err := s.service.Issue(s.ctx, visitID, "ada@example.com")
		s.Require().NoError(err)
		_, err = s.service.ResolveActive(s.ctx, cred.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
		_, err = s.service.ResolveActive(s.ctx, fresh.Token)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestDeactivate() {
	visitID := id.NewVisitID()
	cred, err := s.service.Issue(s.ctx, visitID, "ada@example.com")
	s.Require().NoError(err)

	adminCtx := requestcontext.WithAdminID(s.ctx, id.NewAdminID())
	got, err := s.service.Deactivate(adminCtx, cred.Token)
	s.Require().NoError(err)
	s.False(got.IsActive)

	_, err = s.service.ResolveActive(s.ctx, cred.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))

	_, err = s.service.Deactivate(adminCtx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events, err := s.auditStore.ListByVisit(s.ctx, visitID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCredentialDeactivated), events[1].Action)
	s.NotEmpty(events[1].ActorID)
}

func (s *ServiceSuite) TestStoreFailures() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockAudit := mocks.NewMockAuditPublisher(ctrl)
	svc := New(mockStore, WithAuditPublisher(mockAudit))
	boom := errors.New("connection reset")

	s.Run("issue failure is internal and not audited", func() {
		mockStore.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(boom)
		_, err := svc.Issue(s.ctx, id.NewVisitID(), "ada@example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("resolve failure other than a missing token is internal", func() {
		mockStore.EXPECT().ResolveActive(gomock.Any(), "tok", s.now).Return(nil, boom)
		_, err := svc.ResolveActive(s.ctx, "tok")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("audit failure does not fail deactivation", func() {
		mockStore.EXPECT().Deactivate(gomock.Any(), "tok").
			Return(&models.Credential{Token: "tok", VisitID: id.NewVisitID()}, nil)
		mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit down"))
		_, err := svc.Deactivate(s.ctx, "tok")
		s.NoError(err)
	})

	s.Run("revoked token maps to invalid credential", func() {
		mockStore.EXPECT().ResolveActive(gomock.Any(), "tok", s.now).Return(nil, sentinel.ErrAlreadyUsed)
		_, err := svc.ResolveActive(s.ctx, "tok")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})
}
