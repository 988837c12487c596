package api

import (
	"net/http"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/internal/httpjson"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/internal/metrics"
)

type (
	// Gate enforces an auth.Strategy before requests reach the
	// protected handler.
	Gate struct {
		strategy auth.Strategy
		excluded []string
		metrics  *metrics.Auth
	}
)

// NewGate returns a gate for strategy, a nil strategy lets everything
// through.
func NewGate(strategy auth.Strategy, excluded []string, m *metrics.Auth) *Gate {
	return &Gate{
		strategy: strategy,
		excluded: append([]string(nil), excluded...),
		metrics:  m,
	}
}

func (g *Gate) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.strategy == nil {
			g.metrics.GateDecision(metrics.OutcomeSkipped)
			sensitive.ServeHTTP(w, r)
			return
		}
		if !g.strategy.RequiresAuth(r.URL.Path, g.excluded) {
			g.metrics.GateDecision(metrics.OutcomeExcluded)
			sensitive.ServeHTTP(w, r)
			return
		}
		if g.strategy.Credential(r) == "" {
			g.metrics.GateDecision(metrics.OutcomeUnauthorized)
			httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, err := g.strategy.CurrentUser(r)
		if err != nil {
			log := logutil.GetOrDefault(r.Context())
			log.Error().Err(err).Msg("Unexpected error when resolving the current user")
			g.metrics.GateDecision(metrics.OutcomeError)
			httpjson.Error(w, http.StatusInternalServerError, "Internal error")
			return
		}
		if user == nil {
			g.metrics.GateDecision(metrics.OutcomeForbidden)
			httpjson.Error(w, http.StatusForbidden, "Forbidden")
			return
		}
		g.metrics.GateDecision(metrics.OutcomeAllowed)
		sensitive.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}
