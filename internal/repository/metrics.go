package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_cas_conflicts_total",
		Help: "Conditional writes that lost a race, by operation.",
	}, []string{"operation"})

	claimsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_claims_rejected_total",
		Help: "Capacity claims rejected because the offer was full.",
	})

	pointerSyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_pointer_sync_failures_total",
		Help: "Pointer synchronizations that left a stale pointer pending retry.",
	})
)
