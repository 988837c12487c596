// Package metrics exposes prometheus collectors for the gate and the
// session registry. A nil *Auth is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gate outcomes.
const (
	OutcomeSkipped      = "skipped"
	OutcomeExcluded     = "excluded"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeAllowed      = "allowed"
	OutcomeError        = "error"
)

// Session events.
const (
	SessionCreated   = "created"
	SessionDestroyed = "destroyed"
	SessionExpired   = "expired"
	SessionSwept     = "swept"
)

type Auth struct {
	gateDecisions  *prometheus.CounterVec
	sessionEvents  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewAuth registers the auth collectors with reg.
func NewAuth(reg prometheus.Registerer) *Auth {
	factory := promauto.With(reg)
	return &Auth{
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authbox",
			Name:      "gate_decisions_total",
			Help:      "Requests seen by the auth gate, by outcome.",
		}, []string{"outcome"}),
		sessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authbox",
			Name:      "sessions_total",
			Help:      "Session lifecycle events.",
		}, []string{"event"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "authbox",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
	}
}

func (a *Auth) GateDecision(outcome string) {
	if a == nil {
		return
	}
	a.gateDecisions.WithLabelValues(outcome).Inc()
}

func (a *Auth) SessionEvent(event string) {
	if a == nil {
		return
	}
	a.sessionEvents.WithLabelValues(event).Inc()
}

func (a *Auth) ActiveSessions(n int) {
	if a == nil {
		return
	}
	a.activeSessions.Set(float64(n))
}

// Handler serves the metrics collected by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
