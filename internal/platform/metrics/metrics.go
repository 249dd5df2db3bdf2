package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the application.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	RequestLatency   *prometheus.HistogramVec
	CodesSent        prometheus.Counter
	Registrations    prometheus.Counter
	Decisions        *prometheus.CounterVec
	ScanOutcomes     *prometheus.CounterVec
	ScanLatency      prometheus.Histogram
	MailDeliveries   *prometheus.CounterVec
	AuditRelayed     prometheus.Counter
	RetentionDeleted *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatepass_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		CodesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_verification_codes_sent_total",
			Help: "Verification codes generated and emailed",
		}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_registrations_total",
			Help: "Visit requests registered after code verification",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_visit_decisions_total",
			Help: "Administrator decisions by outcome",
		}, []string{"decision"}), // approved, rejected
		ScanOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_gate_scans_total",
			Help: "Gate scans by outcome",
		}, []string{"outcome"}), // entry, exit, denied
		ScanLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatepass_gate_scan_duration_seconds",
			Help:    "Duration of a gate scan including the record update",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		MailDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_mail_deliveries_total",
			Help: "Email deliveries by provider and result",
		}, []string{"provider", "result"}),
		AuditRelayed: f.NewCounter(prometheus.CounterOpts{
			Name: "gatepass_audit_events_relayed_total",
			Help: "Audit outbox entries published to the event stream",
		}),
		RetentionDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_retention_deleted_total",
			Help: "Expired rows removed by the retention sweeper",
		}, []string{"kind"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatepass_rate_limited_total",
			Help: "Requests rejected by rate limiting, by policy",
		}, []string{"policy"}),
	}
}

// ObserveRequestLatency records an HTTP request latency.
func (m *Metrics) ObserveRequestLatency(route string, status int, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

// IncrementCodesSent counts a generated verification code.
func (m *Metrics) IncrementCodesSent() {
	if m != nil {
		m.CodesSent.Inc()
	}
}

// IncrementRegistrations counts a verified registration.
func (m *Metrics) IncrementRegistrations() {
	if m != nil {
		m.Registrations.Inc()
	}
}

// IncrementDecision counts an approve or reject decision.
func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

// ObserveScan records a scan outcome and its latency.
func (m *Metrics) ObserveScan(outcome string, d time.Duration) {
	if m != nil {
		m.ScanOutcomes.WithLabelValues(outcome).Inc()
		m.ScanLatency.Observe(d.Seconds())
	}
}

// IncrementMailDelivery counts a delivery attempt result per provider.
func (m *Metrics) IncrementMailDelivery(provider string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.MailDeliveries.WithLabelValues(provider, result).Inc()
}

// AddAuditRelayed counts relayed outbox entries.
func (m *Metrics) AddAuditRelayed(n int) {
	if m != nil {
		m.AuditRelayed.Add(float64(n))
	}
}

// AddRetentionDeleted counts rows removed by the sweeper.
func (m *Metrics) AddRetentionDeleted(kind string, n int) {
	if m != nil {
		m.RetentionDeleted.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrementRateLimited counts a request rejected by policy.
func (m *Metrics) IncrementRateLimited(policy string) {
	if m != nil {
		m.RateLimited.WithLabelValues(policy).Inc()
	}
}
