package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Orders created at checkout",
	}, []string{"kind"}) // paid | free | replayed

	NotificationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Subsystem: "payments",
		Name:      "transitions_total",
		Help:      "Payment notification state transitions",
	}, []string{"from", "to", "result"}) // result: ok | rejected

	ProofUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Subsystem: "payments",
		Name:      "proof_uploads_total",
		Help:      "Payment proof submissions",
	}, []string{"result"})

	AccessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Subsystem: "access",
		Name:      "checks_total",
		Help:      "Download access decisions",
	}, []string{"reason"}) // free | anonymous | purchased | denied | staff | author

	StatsRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bookstore",
		Subsystem: "stats",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of full book stats recompute",
		Buckets:   prometheus.DefBuckets,
	})

	HTTPRequests = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "bookstore",
		Subsystem:  "http",
		Name:       "request_duration_seconds",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"method", "status"})
)
