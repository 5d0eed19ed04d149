package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareCounts(t *testing.T) {
	r := newEngine(Metrics())
	r.GET("/things/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/things/:id", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	after := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/things/:id", "200"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	r := newEngine(Metrics())

	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}

	after := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestMetricsInflightReturnsToZero(t *testing.T) {
	r := newEngine(Metrics())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v, want 0", got)
	}
}
