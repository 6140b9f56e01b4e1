package relay

import "github.com/zeromicro/go-zero/core/metric"

const metricNamespace = "relay"

var (
	metricRequests = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricNamespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "relay requests by outcome and error kind",
		Labels:    []string{"outcome", "kind"},
	})

	metricSubmitDuration = metric.NewHistogramVec(&metric.HistogramVecOpts{
		Namespace: metricNamespace,
		Subsystem: "gateway",
		Name:      "submit_duration_ms",
		Help:      "time from first send to final submission result in milliseconds",
		Labels:    []string{"result"},
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	metricSubmitAttempts = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricNamespace,
		Subsystem: "gateway",
		Name:      "submit_attempts_total",
		Help:      "individual sendTransaction attempts by result",
		Labels:    []string{"result"},
	})
)
