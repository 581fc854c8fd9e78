package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bom_console",
		Name:      "backend_requests_total",
		Help:      "Requests issued to the inventory backend, by method and outcome.",
	}, []string{"method", "outcome"})

	LaborRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bom_console",
		Name:      "labor_estimates_total",
		Help:      "Labor cost estimates, by source (backend, cache, empty) and outcome.",
	}, []string{"source", "outcome"})

	LaborStaleResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bom_console",
		Name:      "labor_stale_responses_total",
		Help:      "Labor estimate responses discarded because a newer request was issued.",
	})

	LowStockNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bom_console",
		Name:      "low_stock_notifications_total",
		Help:      "Low-stock notification attempts, by outcome.",
	}, []string{"outcome"})

	SnapshotMaterials = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bom_console",
		Name:      "snapshot_materials",
		Help:      "Materials in the current inventory snapshot.",
	})
)
