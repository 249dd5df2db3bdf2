package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gatepass/internal/notify"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/verification/models"
	visitmodels "gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/platform/validation"
	"gatepass/pkg/requestcontext"
)

const defaultCodeTTL = 10 * time.Minute

var tracer = otel.Tracer("gatepass/verification")

// CodeStore issues and consumes one-time codes.
type CodeStore interface {
	Save(ctx context.Context, code *models.OneTimeCode) error
	Consume(ctx context.Context, email, code string, now time.Time) error
}

// VisitStore is the subset of the visit record store registration needs.
type VisitStore interface {
	Upsert(ctx context.Context, candidate *visitmodels.VisitRecord) (*visitmodels.VisitRecord, error)
}

type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the registration flow: email a code, then verify it and
// upsert the visit record.
type Service struct {
	codes          CodeStore
	visits         VisitStore
	mailer         Mailer
	codeTTL        time.Duration
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

// WithCodeTTL overrides the 10 minute code lifetime.
func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

func New(codes CodeStore, visits VisitStore, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		codes:   codes,
		visits:  visits,
		mailer:  mailer,
		codeTTL: defaultCodeTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode validates the registration, issues a code and emails it.
// The code is stored before delivery; a delivery failure leaves it to expire.
func (s *Service) SendCode(ctx context.Context, req *models.SendCodeRequest) (*models.SendCodeResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	code, err := models.NewOneTimeCode(req.Email, now, s.codeTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	if err := s.codes.Save(ctx, code); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	if err := s.mailer.Send(ctx, notify.CodeMessage(req.Email, code.Code, s.codeTTL)); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver one-time code",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeDelivery, "failed to send verification email")
	}

	s.metrics.IncrementCodesSent()
	return &models.SendCodeResponse{
		Message:   "verification code sent",
		ExpiresAt: code.ExpiresAt,
	}, nil
}

// VerifyAndRegister consumes the code and upserts the visit record keyed by
// email. Re-registration replaces the previous request and resets it to pending.
func (s *Service) VerifyAndRegister(ctx context.Context, req *models.VerifyRequest) (*visitmodels.VisitRecord, error) {
	ctx, span := tracer.Start(ctx, "verification.VerifyAndRegister")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	visitAt, err := validation.ParseDateTime(req.VisitAt)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := s.codes.Consume(ctx, req.Email, req.Code, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeInvalidCode, "invalid or expired verification code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}

	candidate := visitmodels.NewVisitRecord(id.NewVisitID(), visitmodels.Registration{
		Email:   req.Email,
		Name:    req.Name,
		Mobile:  req.Mobile,
		Purpose: req.Purpose,
		VisitAt: visitAt,
	}, now)
	record, err := s.visits.Upsert(ctx, candidate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register visit")
	}
	span.SetAttributes(attribute.String("visit.id", record.ID.String()))

	s.emitAudit(ctx, audit.Event{
		VisitID: record.ID,
		Subject: record.Email,
		Action:  string(audit.EventVisitRegistered),
	})
	s.metrics.IncrementRegistrations()
	return record, nil
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
