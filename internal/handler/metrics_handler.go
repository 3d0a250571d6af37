package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-evote-api/internal/service"
)

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs MetricsHandler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Scrape serves the registry in the Prometheus exposition format.
func (h *MetricsHandler) Scrape(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
