package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_token_requests_total",
		Help: "Access token requests by result: cached, refreshed, failed or cancelled.",
	}, []string{"result"})
	refreshOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_refresh_total",
		Help: "Refresh operations by outcome: ok, rejected, transport or superseded.",
	}, []string{"outcome"})
	refreshShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_refresh_shared_total",
		Help: "Callers that received the result of another caller's in-flight refresh.",
	})
	refreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guard_refresh_duration_seconds",
		Help:    "Latency of the refresh operation.",
		Buckets: prometheus.DefBuckets,
	})
)
