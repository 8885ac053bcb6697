package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts confession submissions by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ventboard_submissions_total",
		Help: "Confession submissions by outcome",
	}, []string{"outcome"})

	// ReplySubmissions counts reply submissions by outcome.
	ReplySubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ventboard_reply_submissions_total",
		Help: "Reply submissions by outcome",
	}, []string{"outcome"})

	// FeedPages counts feed pages fetched, split by initial and follow-up loads.
	FeedPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ventboard_feed_pages_total",
		Help: "Feed pages fetched",
	}, []string{"kind", "outcome"})

	// GatewayLatency records gateway call latency by operation and outcome.
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ventboard_gateway_latency_seconds",
		Help:    "Gateway call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	// CacheErrors counts swallowed key-value cache failures by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ventboard_cache_errors_total",
		Help: "Key-value cache failures by operation",
	}, []string{"operation"})

	// HTTPRequests counts requests served by the config server.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ventboard_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "route", "status"})
)

// TrackGateway returns a function that records the latency of a gateway call when called
// with its error (e.g. via defer).
func TrackGateway(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		GatewayLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}
