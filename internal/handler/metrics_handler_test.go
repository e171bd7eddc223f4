package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/internal/service"
)

type probeMock struct{ err error }

func (p probeMock) Config(ctx context.Context) (models.AppConfig, error) {
	return models.AppConfig{}, p.err
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, probeMock{})
	c, w := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, probeMock{err: errors.New("redis down")})
	c, w = newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis down")
}

func TestMetricsHandlerPrometheusAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordImport("behavior", "success", 10, 1, 4, 0)
	h := NewMetricsHandler(metrics, nil)

	c, w := newTestContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "classbank_imports_total")

	c, w = newTestContext(http.MethodGet, "/metrics/summary", nil)
	h.Summary(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imports_total":1`)

	h = NewMetricsHandler(nil, nil)
	c, w = newTestContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
