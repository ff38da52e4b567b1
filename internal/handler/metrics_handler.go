package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-assignment-manager/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	service string
}

// NewMetricsHandler constructs a metrics handler for the named server.
func NewMetricsHandler(metrics *service.MetricsService, serviceName string) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, service: serviceName}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Triage server liveness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}
