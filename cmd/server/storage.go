package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"gatepass/internal/admin/revocation"
	adminsvc "gatepass/internal/admin/service"
	adminstore "gatepass/internal/admin/store"
	approvalsvc "gatepass/internal/approval/service"
	credentialsvc "gatepass/internal/credential/service"
	credentialstore "gatepass/internal/credential/store"
	gatesvc "gatepass/internal/gate/service"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/postgres"
	"gatepass/internal/platform/redis"
	ratelimitmw "gatepass/internal/ratelimit/middleware"
	"gatepass/internal/ratelimit/store/bucket"
	reportsvc "gatepass/internal/report/service"
	"gatepass/internal/retention"
	verificationsvc "gatepass/internal/verification/service"
	"gatepass/internal/verification/store/code"
	"gatepass/internal/visit/store/record"
	audit "gatepass/pkg/platform/audit"
	auditmemory "gatepass/pkg/platform/audit/store/memory"
	auditpostgres "gatepass/pkg/platform/audit/store/postgres"
	authmw "gatepass/pkg/platform/middleware/auth"
)

// visitStore is the union of what the services need from the visit record store.
type visitStore interface {
	verificationsvc.VisitStore
	approvalsvc.VisitStore
	gatesvc.VisitStore
	reportsvc.VisitStore
}

type codeStore interface {
	verificationsvc.CodeStore
	retention.Reclaimer
}

type credentialStore interface {
	credentialsvc.Store
	retention.Reclaimer
}

type revocationList interface {
	adminsvc.RevocationList
	authmw.TokenRevocationChecker
	retention.Reclaimer
}

type limiterStore interface {
	ratelimitmw.Store
	retention.Reclaimer
}

type healthCheck func(ctx context.Context) error

// stores holds the selected backends. Postgres backs records, credentials,
// admins and audit when DATABASE_URL is set; Redis backs codes and token
// revocation and rate limit buckets when REDIS_URL is set. Anything unset falls back to memory.
type stores struct {
	db          *sql.DB
	visits      visitStore
	codes       codeStore
	credentials credentialStore
	admins      adminsvc.Store
	revocations revocationList
	audit       audit.Store
	limits      limiterStore
	health      map[string]healthCheck
	closers     []func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{
		visits:      record.NewInMemoryStore(),
		codes:       code.NewInMemoryStore(),
		credentials: credentialstore.NewInMemoryStore(),
		admins:      adminstore.NewInMemoryStore(),
		revocations: revocation.NewInMemory(),
		audit:       auditmemory.NewInMemoryStore(),
		limits:      bucket.NewInMemoryStore(),
		health:      make(map[string]healthCheck),
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.db = db
		visits := record.NewPostgres(db)
		s.visits = visits
		s.credentials = credentialstore.NewPostgres(db)
		s.admins = adminstore.NewPostgres(db)
		s.revocations = revocation.NewPostgres(db)
		s.audit = auditpostgres.New(db)
		s.health["postgres"] = visits.Health
		s.closers = append(s.closers, db.Close)
		logger.Info("using postgres storage")
	} else {
		logger.Warn("DATABASE_URL not set; visit records are kept in memory")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		s.Close()
		return nil, err
	}
	if rc != nil {
		s.codes = code.NewRedis(rc.Client)
		s.revocations = revocation.NewRedis(rc.Client)
		s.limits = bucket.NewRedis(rc.Client)
		s.health["redis"] = rc.Health
		s.closers = append(s.closers, rc.Close)
		logger.Info("using redis for one-time codes, token revocation and rate limits")
	}
	return s, nil
}

// Close releases connections in reverse order of opening.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}
