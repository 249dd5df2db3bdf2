package main

import (
	"fmt"
	"log/slog"

	"gatepass/internal/notify"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/metrics"
	"gatepass/pkg/platform/circuit"
)

// newMailer builds the configured provider, wrapped in a failover when a
// fallback provider is configured.
func newMailer(cfg config.MailConfig, logger *slog.Logger, m *metrics.Metrics) (notify.Mailer, error) {
	primary, err := newProvider(cfg.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackProvider == "" || cfg.FallbackProvider == cfg.Provider {
		return notify.Instrument(cfg.Provider, primary, m), nil
	}

	fallback, err := newProvider(cfg.FallbackProvider, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback mail provider: %w", err)
	}
	return notify.NewFailover(cfg.Provider, primary, cfg.FallbackProvider, fallback,
		notify.WithFailoverLogger(logger),
		notify.WithFailoverMetrics(m),
		notify.WithBreaker(circuit.New("mail-"+cfg.Provider,
			circuit.WithFailureThreshold(3),
			circuit.WithSuccessThreshold(1),
		)),
	), nil
}

func newProvider(name string, cfg config.MailConfig, logger *slog.Logger) (notify.Mailer, error) {
	from := notify.Sender{Name: cfg.FromName, Address: cfg.FromAddress}
	switch name {
	case "mailersend":
		m, err := notify.NewMailerSend(cfg.MailerSendAPIKey, from)
		if err != nil {
			return nil, fmt.Errorf("mailersend: %w", err)
		}
		return m, nil
	case "smtp":
		m, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     from,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp: %w", err)
		}
		return m, nil
	case "log", "":
		return notify.NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", name)
	}
}
