package observability

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/queosk/queosk/pkg/metrics"
	"github.com/queosk/queosk/pkg/xresponse"
)

// CheckFunc reports whether one dependency is reachable
type CheckFunc func(ctx context.Context) error

// MetricsHandler provides Prometheus metrics and health endpoints
type MetricsHandler struct {
	registry     *prometheus.Registry
	service      string
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(service string) *MetricsHandler {
	registry := prometheus.NewRegistry()

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &MetricsHandler{
		registry:     registry,
		service:      service,
		checks:       make(map[string]CheckFunc),
		checkTimeout: 2 * time.Second,
	}
}

// RegisterMetrics exposes the application collectors on this handler's registry
func (h *MetricsHandler) RegisterMetrics() {
	h.registry.MustRegister(metrics.Collectors()...)
}

// AddCheck registers a readiness dependency
func (h *MetricsHandler) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// MetricsEndpoint returns the Prometheus metrics handler
func (h *MetricsHandler) MetricsEndpoint() gin.HandlerFunc {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})

	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// HealthEndpoint provides health check
func (h *MetricsHandler) HealthEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   h.service,
			"timestamp": time.Now().Unix(),
		})
	}
}

// ReadinessEndpoint runs every registered check and reports 503 if one fails
func (h *MetricsHandler) ReadinessEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		ready := true
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := h.checks[name](ctx); err != nil {
				ready = false
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		if !ready {
			xresponse.ServiceUnavailable(c, "Service not ready", results)
			return
		}

		xresponse.Success(c, "Service ready", results)
	}
}

// LivenessEndpoint provides liveness check
func (h *MetricsHandler) LivenessEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
		})
	}
}
