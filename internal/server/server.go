// Package server exposes the estimator and farm analyses over a REST API.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
)

// Analyzer is the part of analysis.Service used by the handlers.
type Analyzer interface {
	Analyze(ctx context.Context, farmerID string, refresh bool) (*analysis.Report, error)
	Estimate(ctx context.Context, input carbon.MonthlyCarbonInput) (carbon.MonthlyCarbonResult, error)
}

// Handler serves the REST API.
type Handler struct {
	analyzer Analyzer
	logger   zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(analyzer Analyzer, logger zerolog.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// RegisterRoutes registers the API routes under router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/carbon/estimate", h.estimate)
	router.POST("/radar", h.renderRadar)

	farmers := router.Group("/farmers/:farmerID")
	{
		farmers.GET("/analysis", h.getAnalysis)
		farmers.GET("/radar", h.farmRadar)
		farmers.GET("/statement.xlsx", h.statement)
	}
}

// NewRouter returns the full engine: trace and access-log middleware, the
// API under /api/v1, /healthz, and /metrics served from gatherer when it is
// non-nil.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceID(), AccessLog(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}
