package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_adjustments_total",
		Help: "Point adjustments by kind and outcome",
	}, []string{"kind", "result"})

	DuplicatesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_duplicates_removed_total",
		Help: "Duplicate transactions deleted by reconciliation",
	})

	ReconciliationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_reconciliations_total",
		Help: "Reconciliation runs",
	})

	DuplicateGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loyalty_duplicate_groups",
		Help: "Duplicate groups found by the last ledger-wide scan",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)
