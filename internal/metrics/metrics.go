package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartvoice_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heartvoice_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartvoice_chat_turns_total",
			Help: "Total number of processed chat turns, by response intent.",
		},
		[]string{"intent"},
	)

	ChatFlowsArmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "heartvoice_chat_flows_armed_total",
			Help: "Total number of multi-turn flows armed for continuation.",
		},
	)

	ChatFlowsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "heartvoice_chat_flows_completed_total",
			Help: "Total number of multi-turn flows completed and cleared.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChatTurnsTotal,
		ChatFlowsArmedTotal,
		ChatFlowsCompletedTotal,
	)
}
