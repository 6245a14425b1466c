// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhub_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Recommendations
	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_recommendations_served_total",
			Help: "Total number of questionnaires answered",
		},
	)

	RecommendationResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studyhub_recommendation_result_size",
			Help:    "Number of courses returned per questionnaire",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	// Commerce
	CheckoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_checkouts_total",
			Help: "Total number of completed checkouts",
		},
	)

	RevenueTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_revenue_minor_units_total",
			Help: "Revenue from completed checkouts in minor currency units",
		},
	)

	EnrollmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhub_enrollments_total",
			Help: "Total number of new enrollments",
		},
		[]string{"source"}, // "free", "checkout"
	)

	// Sessions
	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhub_sessions_purged_total",
			Help: "Expired login sessions removed by the cleanup worker",
		},
	)
)

// RecordHTTPRequest records one finished request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecommendation records a served questionnaire and its result size
func RecordRecommendation(results int) {
	RecommendationsServed.Inc()
	RecommendationResultSize.Observe(float64(results))
}

// RecordCheckout records a completed checkout
func RecordCheckout(total int64, courses int) {
	CheckoutsTotal.Inc()
	RevenueTotal.Add(float64(total))
	EnrollmentsTotal.WithLabelValues("checkout").Add(float64(courses))
}

// RecordFreeEnrollment records a direct enrollment in a free course
func RecordFreeEnrollment() {
	EnrollmentsTotal.WithLabelValues("free").Inc()
}

// RecordSessionsPurged records sessions removed by the cleanup worker
func RecordSessionsPurged(n int64) {
	SessionsPurged.Add(float64(n))
}

// Middleware records request count and latency labelled by chi route pattern.
// Unmatched requests are labelled "unmatched" to bound cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPActiveRequests.Inc()
		defer HTTPActiveRequests.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
