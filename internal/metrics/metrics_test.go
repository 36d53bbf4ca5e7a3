package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	before := testutil.ToFloat64(AggregationCycles.WithLabelValues(CycleSkipped))
	ObserveCycle(CycleSkipped, time.Second)
	if got := testutil.ToFloat64(AggregationCycles.WithLabelValues(CycleSkipped)); got != before+1 {
		t.Fatalf("skipped cycles: want %v, got %v", before+1, got)
	}
}

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/usage/:userId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/usage/:userId", "200"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/usage/42", nil))

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/usage/:userId", "200"))
	if got != before+1 {
		t.Fatalf("requests: want %v, got %v", before+1, got)
	}
}
