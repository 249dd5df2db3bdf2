package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gatepass/internal/platform/metrics"
	"gatepass/pkg/platform/circuit"
)

// FailoverMailer sends through a primary provider and switches to the fallback
// once the circuit opens after consecutive primary failures. The primary is
// still tried on every send so recovery closes the circuit again.
type FailoverMailer struct {
	primary      Mailer
	primaryName  string
	fallback     Mailer
	fallbackName string
	breaker      *circuit.Breaker
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type FailoverOption func(*FailoverMailer)

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *FailoverMailer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithFailoverMetrics(m *metrics.Metrics) FailoverOption {
	return func(f *FailoverMailer) { f.metrics = m }
}

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(f *FailoverMailer) {
		if b != nil {
			f.breaker = b
		}
	}
}

func NewFailover(primaryName string, primary Mailer, fallbackName string, fallback Mailer, opts ...FailoverOption) *FailoverMailer {
	f := &FailoverMailer{
		primary:      primary,
		primaryName:  primaryName,
		fallback:     fallback,
		fallbackName: fallbackName,
		breaker:      circuit.New("mail-"+primaryName, circuit.WithFailureThreshold(3)),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FailoverMailer) Send(ctx context.Context, msg Message) error {
	err := f.primary.Send(ctx, msg)
	f.metrics.IncrementMailDelivery(f.primaryName, err == nil)
	if err == nil {
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "mail circuit closed", "provider", f.primaryName)
		}
		return nil
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "mail circuit opened", "provider", f.primaryName, "fallback", f.fallbackName)
	}
	if !useFallback {
		return err
	}

	f.logger.WarnContext(ctx, "primary mail provider failing, using fallback",
		"provider", f.primaryName,
		"error", err,
	)
	fbErr := f.fallback.Send(ctx, msg)
	f.metrics.IncrementMailDelivery(f.fallbackName, fbErr == nil)
	if fbErr != nil {
		return fmt.Errorf("primary: %w; fallback: %w", err, fbErr)
	}
	return nil
}

// InstrumentedMailer counts deliveries of a single provider.
type InstrumentedMailer struct {
	Mailer
	name    string
	metrics *metrics.Metrics
}

func Instrument(name string, m Mailer, mt *metrics.Metrics) *InstrumentedMailer {
	return &InstrumentedMailer{Mailer: m, name: name, metrics: mt}
}

func (m *InstrumentedMailer) Send(ctx context.Context, msg Message) error {
	err := m.Mailer.Send(ctx, msg)
	m.metrics.IncrementMailDelivery(m.name, err == nil)
	return err
}
