// Package service is the gate scan engine. Each scan toggles a visitor
// between OUTSIDE and INSIDE and appends to or closes the entry/exit ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/gate/models"
	"gatepass/internal/platform/metrics"
	visitmodels "gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

var tracer = otel.Tracer("gatepass/gate")

// CredentialResolver resolves a scanned token to an active credential.
// Unknown, revoked and expired tokens fail with CodeInvalidCredential.
type CredentialResolver interface {
	ResolveActive(ctx context.Context, token string) (*credmodels.Credential, error)
}

// VisitStore runs an atomic read-modify-write on one visit record.
type VisitStore interface {
	Execute(ctx context.Context, visitID id.VisitID, validate func(*visitmodels.VisitRecord) error, mutate func(*visitmodels.VisitRecord)) (*visitmodels.VisitRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	credentials    CredentialResolver
	visits         VisitStore
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

func New(credentials CredentialResolver, visits VisitStore, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		visits:      visits,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan records an entry when the visitor is outside and an exit when inside.
// The decision is taken from the presence flag under the record lock, so two
// concurrent scans serialize into entry then exit and never open two events.
func (s *Service) Scan(ctx context.Context, token string) (*models.ScanResult, error) {
	ctx, span := tracer.Start(ctx, "gate.Scan")
	defer span.End()
	start := time.Now()

	result, visitID, err := s.scan(ctx, token)
	if !visitID.IsNil() {
		span.SetAttributes(attribute.String("visit.id", visitID.String()))
	}
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.metrics.ObserveScan("denied", time.Since(start))
		s.logDenied(ctx, visitID, err)
		s.emitAudit(ctx, audit.Event{
			VisitID:  visitID,
			Action:   string(audit.EventGateScanDenied),
			Decision: "denied",
			Reason:   string(dErrors.CodeOf(err)),
			ActorID:  actorID(ctx),
		})
		return nil, err
	}

	span.SetAttributes(attribute.String("gate.event", string(result.Event)))
	s.metrics.ObserveScan(string(result.Event), time.Since(start))
	action := audit.EventGateEntry
	if result.Event == models.EventExit {
		action = audit.EventGateExit
	}
	s.emitAudit(ctx, audit.Event{
		VisitID:  visitID,
		Subject:  result.Visitor.Email,
		Action:   string(action),
		Decision: string(result.Event),
		ActorID:  actorID(ctx),
	})
	return result, nil
}

func (s *Service) scan(ctx context.Context, token string) (*models.ScanResult, id.VisitID, error) {
	cred, err := s.credentials.ResolveActive(ctx, token)
	if err != nil {
		return nil, id.VisitID{}, err
	}

	now := requestcontext.Now(ctx)
	var (
		event models.EventKind
		at    time.Time
	)
	rec, err := s.visits.Execute(ctx, cred.VisitID,
		func(r *visitmodels.VisitRecord) error {
			if err := r.CanScan(); err != nil {
				return err
			}
			if r.IsVisited() {
				return r.CanRecordExit()
			}
			return nil
		},
		func(r *visitmodels.VisitRecord) {
			if r.IsVisited() {
				at = r.ApplyExit(now)
				event = models.EventExit
				return
			}
			r.ApplyEntry(now)
			at = now
			event = models.EventEntry
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// The record was rejected or re-registered away after the credential was issued.
			return nil, cred.VisitID, dErrors.New(dErrors.CodeInvalidCredential, "credential is not valid for entry")
		case dErrors.CodeOf(err) != dErrors.CodeInternal:
			return nil, cred.VisitID, err
		default:
			return nil, cred.VisitID, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record scan")
		}
	}

	return &models.ScanResult{
		Event:   event,
		Time:    at,
		Visitor: models.Visitor{Name: rec.Name, Email: rec.Email},
	}, cred.VisitID, nil
}

func (s *Service) logDenied(ctx context.Context, visitID id.VisitID, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err,
	}
	if !visitID.IsNil() {
		attrs = append(attrs, "visit_id", visitID.String())
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeCorruptState, dErrors.CodeInternal:
		s.logger.ErrorContext(ctx, "gate scan failed", attrs...)
	default:
		s.logger.WarnContext(ctx, "gate scan denied", attrs...)
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
