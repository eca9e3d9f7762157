// Package metrics exposes operation counters for the vault controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set holds the vault's Prometheus collectors. Counters only; exposition is
// the embedding service's concern.
type Set struct {
	Deposits   prometheus.Counter
	Proposed   *prometheus.CounterVec
	Approvals  *prometheus.CounterVec
	Executions *prometheus.CounterVec
}

// New registers the vault collectors with reg.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "vault_deposits_total",
			Help: "Ledger credits from inbound deposits.",
		}),
		Proposed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_actions_proposed_total",
			Help: "Actions proposed, by kind.",
		}, []string{"kind"}),
		Approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_approvals_total",
			Help: "Action approvals, by path (signed or direct).",
		}, []string{"path"}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_executions_total",
			Help: "Action executions, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// NewUnregistered returns a Set backed by a private registry. Used when the
// caller does not care about exposition (tests, one-shot CLI runs).
func NewUnregistered() *Set {
	return New(prometheus.NewRegistry())
}
