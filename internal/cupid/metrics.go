package cupid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts Cupid API calls by operation and HTTP status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cupid_api_requests_total",
		Help: "Total Cupid API requests by operation and status",
	}, []string{"operation", "status"})

	// requestDuration tracks Cupid API latency
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cupid_api_request_duration_seconds",
		Help:    "Cupid API request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"operation"})
)
