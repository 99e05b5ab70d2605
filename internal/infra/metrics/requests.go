package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(httpRequestsTotal, rateLimitRejections, blockedRequests) }

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests served, labeled by method and status code.",
	},
	[]string{"method", "status"},
)

var rateLimitRejections = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected by the sliding-window rate limiter.",
	},
)

var blockedRequests = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "blocked_requests_total",
		Help: "Requests rejected by the IP blacklist gate.",
	},
)

func IncHTTPRequest(method, status string) {
	httpRequestsTotal.WithLabelValues(method, status).Inc()
}

func IncRateLimitRejection() { rateLimitRejections.Inc() }

func IncBlockedRequest() { blockedRequests.Inc() }
