// common/middleware/metrics.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	commonprom "github.com/YaganovValera/storefront-auth/common/prometheus"
)

var (
	reqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"path", "method", "code"},
	)
	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "Request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	commonprom.MustRegisterMany(reqs, duration)
}

// Metrics считает запросы и длительность. pathLabel сводит путь к
// ограниченному набору значений; nil → путь как есть.
func Metrics(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	if pathLabel == nil {
		pathLabel = func(r *http.Request) string { return r.URL.Path }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapWriter(w)
			next.ServeHTTP(rw, r)

			path := pathLabel(r)
			reqs.WithLabelValues(path, r.Method, strconv.Itoa(rw.status)).Inc()
			duration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
