// Package service manages administrator accounts and their bearer tokens.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatepass/internal/admin/models"
	"gatepass/internal/admin/token"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	audit "gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

const defaultTokenTTL = 12 * time.Hour

// Store persists admin accounts. Create returns sentinel.ErrConflict for a
// duplicate email.
type Store interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type TokenIssuer interface {
	Generate(adminID id.AdminID, now time.Time, ttl time.Duration) (*token.Issued, error)
}

// RevocationList remembers logged-out token ids until they expire.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	tokens         TokenIssuer
	revocations    RevocationList
	tokenTTL       time.Duration
	bcryptCost     int
	dummyHash      []byte
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

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func New(store Store, tokens TokenIssuer, revocations RevocationList, opts ...Option) *Service {
	s := &Service{
		store:       store,
		tokens:      tokens,
		revocations: revocations,
		tokenTTL:    defaultTokenTTL,
		bcryptCost:  bcrypt.DefaultCost,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Unknown emails still pay for one comparison so response time does not
	// reveal which accounts exist.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gatepass-dummy-password"), s.bcryptCost)
	return s
}

// Register creates an admin account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Admin, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin := &models.Admin{
		ID:           id.NewAdminID(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an admin with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}

	s.emitAudit(ctx, audit.Event{
		Subject: admin.Email,
		Action:  string(audit.EventAdminRegistered),
		ActorID: admin.ID.String(),
	})
	return admin, nil
}

// Login checks the password and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	admin, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	if admin == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, s.denyLogin(ctx, req.Email, "unknown_email")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.denyLogin(ctx, req.Email, "wrong_password")
	}

	issued, err := s.tokens.Generate(admin.ID, requestcontext.Now(ctx), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.emitAudit(ctx, audit.Event{
		Subject: admin.Email,
		Action:  string(audit.EventAdminLogin),
		ActorID: admin.ID.String(),
	})
	return &models.TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
		Admin:       models.NewAdminResponse(admin),
	}, nil
}

// Logout revokes the token on the request context until it expires.
func (s *Service) Logout(ctx context.Context) error {
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "no active token")
	}
	expiresAt := requestcontext.TokenExpiry(ctx)
	if expiresAt.IsZero() {
		expiresAt = requestcontext.Now(ctx).Add(s.tokenTTL)
	}
	if err := s.revocations.RevokeToken(ctx, jti, expiresAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}

	s.emitAudit(ctx, audit.Event{
		Action:  string(audit.EventAdminLogout),
		ActorID: actorID(ctx),
	})
	return nil
}

func (s *Service) denyLogin(ctx context.Context, email, reason string) error {
	s.logger.WarnContext(ctx, "admin login denied",
		"request_id", requestcontext.RequestID(ctx),
		"reason", reason,
	)
	s.emitAudit(ctx, audit.Event{
		Subject: email,
		Action:  string(audit.EventAdminLoginDenied),
		Reason:  reason,
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
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
