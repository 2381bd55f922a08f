// Package metrics defines the custom Prometheus metrics of the identity
// service. It is the single source of truth for metric names, labels and
// help strings. All collectors register with the default registry on import.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const namespace = "identity"

// ── Authentication metrics ────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication flow outcomes.
// Labels:
//   - flow: "register", "login" or "refresh"
//   - outcome: "success" or the error kind (e.g. "unauthorized", "conflict")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication flow attempts, by flow and outcome.",
	},
	[]string{"flow", "outcome"},
)

// TokensIssuedTotal counts signed tokens handed out.
// Label:
//   - kind: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by token kind.",
	},
	[]string{"kind"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDenialsTotal counts requests rejected by the gate.
// Label:
//   - reason: "unauthorized" or "forbidden"
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests denied by the authorization gate.",
	},
	[]string{"reason"},
)

// ── Hashing metrics ───────────────────────────────────────────────────────────

// PasswordHashDuration measures key derivation time inside the hashing pool.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of Argon2id derivations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ObserveHash is shaped to plug into queue.PooledHasher.OnDuration.
func ObserveHash(op string, d time.Duration) {
	PasswordHashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Outcome converts a flow result into the outcome label value.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch kind := domain.KindOf(err); {
	case errors.Is(kind, domain.ErrValidation):
		return "invalid"
	case errors.Is(kind, domain.ErrConflict):
		return "conflict"
	case errors.Is(kind, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(kind, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(kind, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
