package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	adminhandler "gatepass/internal/admin/handler"
	adminsvc "gatepass/internal/admin/service"
	"gatepass/internal/admin/token"
	approvalhandler "gatepass/internal/approval/handler"
	approvalsvc "gatepass/internal/approval/service"
	credentialhandler "gatepass/internal/credential/handler"
	credentialrender "gatepass/internal/credential/render"
	credentialsvc "gatepass/internal/credential/service"
	gatehandler "gatepass/internal/gate/handler"
	gatesvc "gatepass/internal/gate/service"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/httpserver"
	"gatepass/internal/platform/kafka"
	"gatepass/internal/platform/logger"
	"gatepass/internal/platform/metrics"
	ratelimitmw "gatepass/internal/ratelimit/middleware"
	ratelimitmodels "gatepass/internal/ratelimit/models"
	reporthandler "gatepass/internal/report/handler"
	reportrender "gatepass/internal/report/render"
	reportsvc "gatepass/internal/report/service"
	"gatepass/internal/retention"
	verificationhandler "gatepass/internal/verification/handler"
	verificationsvc "gatepass/internal/verification/service"
	auditpublisher "gatepass/pkg/platform/audit/publisher"
	"gatepass/pkg/platform/audit/worker"
	adminmw "gatepass/pkg/platform/middleware/admin"
	authmw "gatepass/pkg/platform/middleware/auth"
)

// main wires dependencies and runs the HTTP server alongside the background
// workers until SIGINT or SIGTERM. Business logic lives in internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel, cfg.Server.Environment)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gatepass stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("gatepass stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	mailer, err := newMailer(cfg.Mail, log, m)
	if err != nil {
		return err
	}

	publisher := auditpublisher.NewPublisher(st.audit, auditpublisher.WithLogger(log))

	credentials := credentialsvc.New(st.credentials,
		credentialsvc.WithLogger(log),
		credentialsvc.WithAuditPublisher(publisher),
		credentialsvc.WithTTL(cfg.Lifetimes.CredentialTTL),
	)
	verification := verificationsvc.New(st.codes, st.visits, mailer,
		verificationsvc.WithLogger(log),
		verificationsvc.WithAuditPublisher(publisher),
		verificationsvc.WithMetrics(m),
		verificationsvc.WithCodeTTL(cfg.Lifetimes.CodeTTL),
	)
	approval := approvalsvc.New(st.visits, credentials, credentialrender.NewQR(), mailer,
		approvalsvc.WithLogger(log),
		approvalsvc.WithAuditPublisher(publisher),
		approvalsvc.WithMetrics(m),
	)
	gate := gatesvc.New(credentials, st.visits,
		gatesvc.WithLogger(log),
		gatesvc.WithAuditPublisher(publisher),
		gatesvc.WithMetrics(m),
	)
	reports := reportsvc.New(st.visits, reportsvc.WithLogger(log))

	tokens := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	admins := adminsvc.New(st.admins, tokens, st.revocations,
		adminsvc.WithLogger(log),
		adminsvc.WithAuditPublisher(publisher),
		adminsvc.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	requireAdmin := authmw.RequireAdmin(tokens, st.revocations, log)

	rl := cfg.RateLimit
	limiter := ratelimitmw.New(st.limits, log,
		ratelimitmw.WithDisabled(!rl.Enabled),
		ratelimitmw.WithMetrics(m),
	)
	visitorIP := limiter.ByIP(ratelimitmodels.Policy{Name: "visitor_ip", Limit: rl.PerIP, Window: rl.Window})
	codeEmail := limiter.ByEmail(ratelimitmodels.Policy{Name: "send_code_email", Limit: rl.PerEmail, Window: rl.Window})
	loginIP := limiter.ByIP(ratelimitmodels.Policy{Name: "login_ip", Limit: rl.LoginPerIP, Window: rl.Window})

	router := newRouter(routerDeps{
		logger:         log,
		metrics:        m,
		requestTimeout: cfg.Server.RequestTimeout,
		requireAdmin:   requireAdmin,
		health:         st.health,
		public: []routeRegistrar{
			verificationhandler.New(verification, log,
				verificationhandler.WithSendCodeGuards(visitorIP, codeEmail),
				verificationhandler.WithVerifyGuards(visitorIP),
			),
			adminhandler.New(admins, log,
				adminmw.RequireRegistrationKey(cfg.Auth.RegistrationKey, log),
				requireAdmin,
				adminhandler.WithLoginGuards(loginIP),
			),
		},
		admin: []routeRegistrar{
			approvalhandler.New(approval, log),
			gatehandler.New(gate, log),
			credentialhandler.New(credentials, log),
			reporthandler.New(reports, reportrender.NewPDF(time.UTC), log),
		},
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	sweeper := retention.New(
		retention.WithInterval(cfg.Lifetimes.SweepInterval),
		retention.WithLogger(log),
		retention.WithMetrics(m),
	).
		Add("code", st.codes).
		Add("credential", st.credentials).
		Add("revoked_token", st.revocations).
		Add("rate_limit", st.limits)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return ignoreCanceled(sweeper.Run(gctx))
	})

	if cfg.Kafka.Enabled() {
		if st.db == nil {
			log.Warn("KAFKA_BROKERS is set but audit streaming needs DATABASE_URL; relay disabled")
		} else {
			producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
			if err != nil {
				return err
			}
			defer producer.Close()
			if err := producer.EnsureTopic(ctx); err != nil {
				return err
			}
			relay := worker.NewRelay(st.db, producer,
				worker.WithLogger(log),
				worker.WithCounter(m),
			)
			g.Go(func() error {
				return ignoreCanceled(relay.Run(gctx))
			})
			log.Info("audit relay enabled", "topic", cfg.Kafka.AuditTopic)
		}
	}

	log.Info("starting gatepass",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"mail_provider", cfg.Mail.Provider,
	)
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
