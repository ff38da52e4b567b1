package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterRelayRoutes mounts the relay endpoints. The catch-all also answers GET <prefix>/health.
func RegisterRelayRoutes(r gin.IRouter, prefix string, relay *RelayHandler) {
	r.GET("/health", relay.Health)
	r.Any(strings.TrimRight(prefix, "/")+"/*path", relay.Proxy)
}

// RegisterTriageRoutes mounts the assignment store API.
func RegisterTriageRoutes(r gin.IRouter, h *AssignmentHandler) {
	api := r.Group("/api")
	api.GET("/state", h.State)
	api.DELETE("/state", h.Clear)
	api.PUT("/config", h.UpdateConfig)
	api.PUT("/settings/show-hidden", h.SetShowHidden)
	api.GET("/jobs/:id", h.Job)

	assignments := api.Group("/assignments")
	assignments.GET("", h.List)
	assignments.PUT("", h.Replace)
	assignments.POST("/refresh", h.Refresh)
	assignments.POST("/demo", h.Demo)
	assignments.POST("/select-all", h.SelectAll)
	assignments.POST("/deselect-all", h.DeselectAll)
	assignments.GET("/export", h.Export)
	assignments.POST("/:id/toggle-selection", h.ToggleSelection)
	assignments.POST("/:id/toggle-visibility", h.ToggleVisibility)
}

// RegisterObservabilityRoutes mounts /metrics and, when health is true, /health.
func RegisterObservabilityRoutes(r gin.IRouter, h *MetricsHandler, health bool) {
	r.GET("/metrics", h.Prometheus)
	if health {
		r.GET("/health", h.Health)
	}
}
