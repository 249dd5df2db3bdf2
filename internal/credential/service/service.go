// Package service issues, resolves and revokes gate credentials.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

const defaultCredentialTTL = 24 * time.Hour

// Store persists credentials. Issue must deactivate every prior active
// credential of the same visit atomically with the insert.
type Store interface {
	Issue(ctx context.Context, cred *models.Credential) error
	ResolveActive(ctx context.Context, token string, now time.Time) (*models.Credential, error)
	Deactivate(ctx context.Context, token string) (*models.Credential, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	ttl            time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithTTL overrides the 24 hour credential lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    defaultCredentialTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a fresh credential for the visit, superseding any earlier one.
func (s *Service) Issue(ctx context.Context, visitID id.VisitID, subject string) (*models.Credential, error) {
	cred := models.NewCredential(visitID, requestcontext.Now(ctx), s.ttl)
	if err := s.store.Issue(ctx, cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
	}
	s.emitAudit(ctx, audit.Event{
		VisitID: visitID,
		Subject: subject,
		Action:  string(audit.EventCredentialIssued),
		ActorID: actorID(ctx),
	})
	return cred, nil
}

// ResolveActive returns the credential behind a scanned token. Unknown,
// revoked and expired tokens are all InvalidCredential.
func (s *Service) ResolveActive(ctx context.Context, token string) (*models.Credential, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "invalid or expired credential")
	}
	cred, err := s.store.ResolveActive(ctx, token, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidCredential, "invalid or expired credential")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve credential")
	}
	return cred, nil
}

// Deactivate revokes a credential, for example when a badge is lost.
func (s *Service) Deactivate(ctx context.Context, token string) (*models.Credential, error) {
	cred, err := s.store.Deactivate(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate credential")
	}
	s.emitAudit(ctx, audit.Event{
		VisitID: cred.VisitID,
		Action:  string(audit.EventCredentialDeactivated),
		ActorID: actorID(ctx),
	})
	return cred, nil
}

func actorID(ctx context.Context) string {
	adminID := requestcontext.AdminID(ctx)
	if adminID.IsNil() {
		return ""
	}
	return adminID.String()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
