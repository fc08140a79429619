package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"path", "status"},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"path"},
	)

	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPLatency)
		prometheus.MustRegister(WebhookRequests)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request.
func ObserveHTTP(path string, status int, latency time.Duration) {
	HTTPRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(path).Observe(float64(latency) / float64(time.Millisecond))
}

// ObserveWebhook records one ingestion outcome.
func ObserveWebhook(result string) {
	WebhookRequests.WithLabelValues(result).Inc()
}
