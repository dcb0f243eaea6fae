package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomonitor/internal/health"
)

type fixedProbe struct {
	name   string
	result health.Result
}

func (p fixedProbe) Name() string                          { return p.name }
func (p fixedProbe) Probe(_ context.Context) health.Result { return p.result }

func checkHealth(t *testing.T, probes ...health.Probe) (*httptest.ResponseRecorder, health.Report) {
	t.Helper()

	handler := NewHealthHandler(health.NewAggregator(probes...))
	router := gin.New()
	router.GET("/health", handler.Check)
	router.GET("/health/live", handler.Live)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return w, report
}

func TestHealthCheckHealthy(t *testing.T) {
	w, report := checkHealth(t,
		fixedProbe{name: "store", result: health.Result{Status: health.StatusHealthy}},
		fixedProbe{name: "memory", result: health.Result{Status: health.StatusHealthy}},
	)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Len(t, report.Components, 2)
}

func TestHealthCheckWarningStillServes200(t *testing.T) {
	w, report := checkHealth(t,
		fixedProbe{name: "store", result: health.Result{Status: health.StatusHealthy}},
		fixedProbe{name: "memory", result: health.Result{Status: health.StatusWarning, Detail: "heap high"}},
		fixedProbe{name: "coverage", result: health.Result{Status: health.StatusInformational}},
	)

	// Degraded but operational: only unhealthy maps to 503.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.StatusWarning, report.Status)
}

func TestHealthCheckUnhealthy(t *testing.T) {
	w, report := checkHealth(t,
		fixedProbe{name: "store", result: health.Result{Status: health.StatusUnhealthy, Detail: "connection refused"}},
		fixedProbe{name: "memory", result: health.Result{Status: health.StatusHealthy}},
	)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, health.StatusUnhealthy, report.Status)
	assert.Equal(t, "connection refused", report.Components["store"].Detail)
}

func TestLiveness(t *testing.T) {
	handler := NewHealthHandler(health.NewAggregator())
	router := gin.New()
	router.GET("/health/live", handler.Live)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "alive"}`, w.Body.String())
}
