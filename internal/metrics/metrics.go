package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MetricBeaconTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rawsite", Name: "beacon_total", Help: "Tracking beacon attempts by outcome"},
		[]string{"outcome"},
	)
	MetricPaymentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rawsite", Name: "payment_total", Help: "Payment bridge transitions by resulting status"},
		[]string{"status"},
	)
	MetricRemoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rawsite",
			Name:      "remote_duration_seconds",
			Help:      "Latency of calls to the backend API in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"call"},
	)
	MetricHttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rawsite",
			Name:      "http_duration_seconds",
			Help:      "Latency of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
	MetricRedisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rawsite",
			Name:      "redis_op_duration_seconds",
			Help:      "Latency of Redis operations in seconds",
			Buckets:   []float64{.001, .002, .005, .01, .02, .05, .1},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(MetricBeaconTotal)
	prometheus.MustRegister(MetricPaymentTotal)
	prometheus.MustRegister(MetricRemoteDuration)
	prometheus.MustRegister(MetricHttpDuration)
	prometheus.MustRegister(MetricRedisDuration)
}
