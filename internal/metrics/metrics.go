package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainCallsTotal counts chain calls by method and outcome
	ChainCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_chain_calls_total",
			Help: "The total number of calls made to the chain node",
		},
		[]string{"method", "outcome"}, // outcome: ok, error, CONFIRMED, REVERTED, TIMEOUT, SUBMIT_FAILED
	)

	// ChainCallSeconds tracks time spent per chain call, including receipt polling for writes
	ChainCallSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctl_chain_call_seconds",
			Help:    "Time taken by chain calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms to ~51s
		},
		[]string{"method"},
	)

	// RewardsTotal counts disbursements by result code
	RewardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_rewards_total",
			Help: "The total number of reward disbursements",
		},
		[]string{"result"},
	)

	// CheckoutsTotal counts checkouts by mode and result code
	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_checkouts_total",
			Help: "The total number of checkouts",
		},
		[]string{"mode", "result"},
	)

	// BalanceFallbacks counts balance reads answered from cache because the chain failed
	BalanceFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctl_balance_cache_fallbacks_total",
		Help: "Balance reads served from the cached value after a chain failure",
	})

	// SettlementsReconciled counts reconciler outcomes
	SettlementsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_settlements_reconciled_total",
			Help: "Settlement journal rows processed by the reconciler",
		},
		[]string{"result"}, // committed, needs_review, failed
	)

	// EventsPublished counts ledger events handed to the broker
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_events_published_total",
			Help: "Ledger events published",
		},
		[]string{"type", "status"},
	)

	// HTTPRequestsTotal counts internal API requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctl_http_requests_total",
			Help: "Internal API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestSeconds tracks internal API latency
	HTTPRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctl_http_request_seconds",
			Help:    "Internal API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordChainCall records one chain call and its duration
func RecordChainCall(method, outcome string, seconds float64) {
	ChainCallsTotal.WithLabelValues(method, outcome).Inc()
	ChainCallSeconds.WithLabelValues(method).Observe(seconds)
}

// RecordReward records a disbursement result ("ok" or an error code)
func RecordReward(result string) {
	RewardsTotal.WithLabelValues(result).Inc()
}

// RecordCheckout records a checkout result ("ok" or an error code)
func RecordCheckout(mode, result string) {
	CheckoutsTotal.WithLabelValues(mode, result).Inc()
}

// RecordBalanceFallback records a cache fallback
func RecordBalanceFallback() {
	BalanceFallbacks.Inc()
}

// RecordReconciled records a reconciler outcome
func RecordReconciled(result string) {
	SettlementsReconciled.WithLabelValues(result).Inc()
}

// RecordEventPublished records a publish attempt
func RecordEventPublished(eventType, status string) {
	EventsPublished.WithLabelValues(eventType, status).Inc()
}

// ObserveHTTP records one served request
func ObserveHTTP(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestSeconds.WithLabelValues(method, route).Observe(seconds)
}
