// Package service runs the administrator decisions on pending visits.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatepass/internal/approval/models"
	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/notify"
	"gatepass/internal/platform/metrics"
	visitmodels "gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

var tracer = otel.Tracer("gatepass/approval")

// VisitStore is the subset of the visit record store decisions need.
type VisitStore interface {
	FindByID(ctx context.Context, visitID id.VisitID) (*visitmodels.VisitRecord, error)
	ListByStatus(ctx context.Context, status visitmodels.Status) ([]*visitmodels.VisitRecord, error)
	Execute(ctx context.Context, visitID id.VisitID, validate func(*visitmodels.VisitRecord) error, mutate func(*visitmodels.VisitRecord)) (*visitmodels.VisitRecord, error)
	Delete(ctx context.Context, visitID id.VisitID, expected visitmodels.Status) error
}

// CredentialIssuer issues a fresh credential, superseding earlier ones.
type CredentialIssuer interface {
	Issue(ctx context.Context, visitID id.VisitID, subject string) (*credmodels.Credential, error)
}

// Renderer turns a credential token into an image.
type Renderer interface {
	Render(token string) ([]byte, error)
}

type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	visits         VisitStore
	credentials    CredentialIssuer
	renderer       Renderer
	mailer         Mailer
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(visits VisitStore, credentials CredentialIssuer, renderer Renderer, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		visits:      visits,
		credentials: credentials,
		renderer:    renderer,
		mailer:      mailer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPending returns every visit awaiting a decision, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*visitmodels.VisitRecord, error) {
	records, err := s.visits.ListByStatus(ctx, visitmodels.StatusPending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending visits")
	}
	return records, nil
}

// Approve moves a pending visit to approved, then issues and emails its
// credential. The approval is committed before delivery starts; a delivery
// failure is returned as CodeDelivery and leaves the visit approved.
func (s *Service) Approve(ctx context.Context, visitID id.VisitID) (*models.Approval, error) {
	ctx, span := tracer.Start(ctx, "approval.Approve", trace.WithAttributes(attribute.String("visit.id", visitID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	rec, err := s.visits.Execute(ctx, visitID,
		func(r *visitmodels.VisitRecord) error { return r.CanApprove() },
		func(r *visitmodels.VisitRecord) { r.ApplyApproval(now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "failed to approve visit")
	}

	s.emitAudit(ctx, audit.Event{
		VisitID:  rec.ID,
		Subject:  rec.Email,
		Action:   string(audit.EventVisitApproved),
		Decision: string(visitmodels.StatusApproved),
		ActorID:  actorID(ctx),
	})
	s.metrics.IncrementDecision(string(visitmodels.StatusApproved))

	cred, err := s.deliverCredential(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &models.Approval{Visit: rec, CredentialExpiresAt: cred.ExpiresAt}, nil
}

// ResendCredential issues a fresh credential for an approved visit and
// emails it. Prior credentials of the visit stop working.
func (s *Service) ResendCredential(ctx context.Context, visitID id.VisitID) (*models.Approval, error) {
	rec, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load visit")
	}
	if !rec.IsApproved() {
		return nil, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("visit is %s, not approved", rec.Status))
	}
	cred, err := s.deliverCredential(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &models.Approval{Visit: rec, CredentialExpiresAt: cred.ExpiresAt}, nil
}

// Reject moves a pending visit to rejected, attempts the rejection notice,
// then deletes the record whether or not the notice went out. A notice
// failure is reported as CodeDelivery after the deletion.
func (s *Service) Reject(ctx context.Context, visitID id.VisitID) error {
	ctx, span := tracer.Start(ctx, "approval.Reject", trace.WithAttributes(attribute.String("visit.id", visitID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	rec, err := s.visits.Execute(ctx, visitID,
		func(r *visitmodels.VisitRecord) error { return r.CanReject() },
		func(r *visitmodels.VisitRecord) { r.ApplyRejection(now) },
	)
	if err != nil {
		return translateStoreError(err, "failed to reject visit")
	}

	s.emitAudit(ctx, audit.Event{
		VisitID:  rec.ID,
		Subject:  rec.Email,
		Action:   string(audit.EventVisitRejected),
		Decision: string(visitmodels.StatusRejected),
		ActorID:  actorID(ctx),
	})
	s.metrics.IncrementDecision(string(visitmodels.StatusRejected))

	sendErr := s.mailer.Send(ctx, notify.RejectionMessage(rec.Email, rec.Name))
	if sendErr != nil {
		s.logger.ErrorContext(ctx, "failed to deliver rejection notice",
			"request_id", requestcontext.RequestID(ctx),
			"visit_id", rec.ID.String(),
			"error", sendErr,
		)
	}

	if err := s.visits.Delete(ctx, rec.ID, visitmodels.StatusRejected); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			// The visitor re-registered between the decision and the delete.
			s.logger.InfoContext(ctx, "rejected visit was re-registered before deletion",
				"request_id", requestcontext.RequestID(ctx),
				"visit_id", rec.ID.String(),
			)
		case errors.Is(err, sentinel.ErrNotFound):
			// Already gone.
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete rejected visit")
		}
	}

	if sendErr != nil {
		return dErrors.Wrap(sendErr, dErrors.CodeDelivery, "visit rejected but the notice could not be sent")
	}
	return nil
}

func (s *Service) deliverCredential(ctx context.Context, rec *visitmodels.VisitRecord) (*credmodels.Credential, error) {
	cred, err := s.credentials.Issue(ctx, rec.ID, rec.Email)
	if err != nil {
		return nil, s.deliveryFailed(ctx, rec, "issue", err)
	}
	png, err := s.renderer.Render(cred.Token)
	if err != nil {
		return nil, s.deliveryFailed(ctx, rec, "render", err)
	}
	msg := notify.ApprovalMessage(rec.Email, rec.Name, rec.Purpose, rec.VisitAt, png)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, s.deliveryFailed(ctx, rec, "send", err)
	}
	return cred, nil
}

func (s *Service) deliveryFailed(ctx context.Context, rec *visitmodels.VisitRecord, stage string, err error) error {
	s.logger.ErrorContext(ctx, "credential delivery failed",
		"request_id", requestcontext.RequestID(ctx),
		"visit_id", rec.ID.String(),
		"stage", stage,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeDelivery, "visit approved but the credential could not be delivered; resend it")
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "visit not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
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
