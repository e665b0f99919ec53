package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records authentication counters.
type Metrics struct {
	gatherer prometheus.Gatherer

	loginAttemptsTotal   *prometheus.CounterVec
	gateDecisionsTotal   *prometheus.CounterVec
	sessionsCreatedTotal prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry so that several
// handlers can be built in one process (tests, serverless warm starts).
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	loginAttemptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	gateDecisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsletter_gate_decisions_total",
		Help: "Admin gate decisions",
	}, []string{"decision"})

	sessionsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsletter_sessions_created_total",
		Help: "Sessions populated by a successful login",
	})

	reg.MustRegister(loginAttemptsTotal, gateDecisionsTotal, sessionsCreatedTotal)

	return &Metrics{
		gatherer:             reg,
		loginAttemptsTotal:   loginAttemptsTotal,
		gateDecisionsTotal:   gateDecisionsTotal,
		sessionsCreatedTotal: sessionsCreatedTotal,
	}
}

// RecordLoginAttempt takes one of "success", "invalid", "error", "throttled".
func (m *Metrics) RecordLoginAttempt(result string) {
	m.loginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordGateDecision takes one of "allow", "redirect", "error".
func (m *Metrics) RecordGateDecision(decision string) {
	m.gateDecisionsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) RecordSessionCreated() {
	m.sessionsCreatedTotal.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
