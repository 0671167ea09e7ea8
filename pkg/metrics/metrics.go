package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by audience (user|admin)
	// and result (success|expired|paused|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeacademy_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"audience", "result"},
	)

	// TokensConsumed counts access tokens consumed by flow (register|renew).
	TokensConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeacademy_tokens_consumed_total",
			Help: "Total number of access tokens consumed",
		},
		[]string{"flow"},
	)

	// TokensIssued counts issued access tokens.
	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradeacademy_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	// TradesExecuted counts simulated trades by side (buy|sell).
	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradeacademy_trades_executed_total",
			Help: "Total number of simulated trades executed",
		},
		[]string{"side"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradeacademy_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
