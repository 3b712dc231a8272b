package vigilance

import "github.com/prometheus/client_golang/prometheus"

var (
	subscribersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "praevisio",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of stream subscribers currently attached.",
		},
	)

	deliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "stream",
			Name:      "deliveries_total",
			Help:      "Payloads handed to subscribers.",
		},
	)

	deliveriesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "stream",
			Name:      "deliveries_dropped_total",
			Help:      "Payloads a subscriber could not accept.",
		},
		[]string{"reason"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "vigilance",
			Name:      "events_published_total",
			Help:      "Vigilance events published, by event name.",
		},
		[]string{"event"},
	)

	flowTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "vigilance",
			Name:      "flow_ticks_total",
			Help:      "Completed flow ticks, by flow.",
		},
		[]string{"flow"},
	)

	globalRiskGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "praevisio",
			Subsystem: "vigilance",
			Name:      "global_risk",
			Help:      "Current global risk index (0-100).",
		},
	)

	persistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "praevisio",
			Subsystem: "vigilance",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed.",
		},
	)
)

func init() {
	_ = prometheus.Register(subscribersGauge)
	_ = prometheus.Register(deliveriesTotal)
	_ = prometheus.Register(deliveriesDropped)
	_ = prometheus.Register(eventsPublished)
	_ = prometheus.Register(flowTicks)
	_ = prometheus.Register(globalRiskGauge)
	_ = prometheus.Register(persistFailures)
}
