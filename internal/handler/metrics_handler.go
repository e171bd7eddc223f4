package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/internal/service"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/response"
)

type readinessProbe interface {
	Config(ctx context.Context) (models.AppConfig, error)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	probe   readinessProbe
}

// NewMetricsHandler constructs a metrics handler. probe may be nil, in which
// case readiness always reports ready.
func NewMetricsHandler(metrics *service.MetricsService, probe readinessProbe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, probe: probe}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the state store can be read.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.probe != nil {
		if _, err := h.probe.Config(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Summary godoc
// @Summary Service counters
// @Tags Metrics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "metrics disabled"))
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
