package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusBucket(t *testing.T) {
	assert.Equal(t, "2xx", statusBucket(200))
	assert.Equal(t, "4xx", statusBucket(423))
	assert.Equal(t, "5xx", statusBucket(503))
}

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/deposits/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/deposits/:id", "2xx"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/deposits/FD-1", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/deposits/:id", "2xx"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesNamespace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RiskFailClosedTotal.Add(0)

	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "securebank_risk_fail_closed_total"))
}
