package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gomonitor/internal/health"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler exposes the composite diagnostic report.
type HealthHandler struct {
	aggregator *health.Aggregator
}

func NewHealthHandler(aggregator *health.Aggregator) *HealthHandler {
	return &HealthHandler{aggregator: aggregator}
}

// Check runs every probe. Only an unhealthy composite maps to 503; warning
// and informational reports still return 200.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	report := h.aggregator.Check(ctx)

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, report)
}

// Live is a trivial liveness probe.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
