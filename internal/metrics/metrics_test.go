package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test/direct", "200"))
	RecordHTTPRequest("GET", "/test/direct", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test/direct", "200"))
	assert.Equal(t, before+1, after)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/test/courses/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/test/courses/1", "/test/courses/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPActiveRequests))
}

func TestRecordCheckout(t *testing.T) {
	checkouts := testutil.ToFloat64(CheckoutsTotal)
	revenue := testutil.ToFloat64(RevenueTotal)
	enrollments := testutil.ToFloat64(EnrollmentsTotal.WithLabelValues("checkout"))

	RecordCheckout(1500000, 3)

	assert.Equal(t, checkouts+1, testutil.ToFloat64(CheckoutsTotal))
	assert.Equal(t, revenue+1500000, testutil.ToFloat64(RevenueTotal))
	assert.Equal(t, enrollments+3, testutil.ToFloat64(EnrollmentsTotal.WithLabelValues("checkout")))
}

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsServed)
	RecordRecommendation(4)
	assert.Equal(t, before+1, testutil.ToFloat64(RecommendationsServed))
}
