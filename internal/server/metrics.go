package server

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		},
		[]string{"method", "code"},
	)

	tokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Ephemeral stream tokens issued.",
		},
	)

	tokensRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "token",
			Name:      "rate_limited_total",
			Help:      "Token requests rejected by the per-caller limiter.",
		},
	)

	streamRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "stream",
			Name:      "rejected_total",
			Help:      "Stream requests refused for a missing or invalid credential.",
		},
	)
)

func init() {
	_ = prometheus.Register(httpRequests)
	_ = prometheus.Register(tokensIssued)
	_ = prometheus.Register(tokensRateLimited)
	_ = prometheus.Register(streamRejected)
}
