package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/logging"
	"github.com/satfarm/farmcarbon/internal/radar"
	"github.com/satfarm/farmcarbon/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// estimate handles POST /api/v1/carbon/estimate
func (h *Handler) estimate(c *gin.Context) {
	var in carbon.MonthlyCarbonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := analysis.ValidateInput(in); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.analyzer.Estimate(c.Request.Context(), in)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getAnalysis handles GET /api/v1/farmers/:farmerID/analysis
func (h *Handler) getAnalysis(c *gin.Context) {
	rep, ok := h.analyze(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

// farmRadar handles GET /api/v1/farmers/:farmerID/radar
func (h *Handler) farmRadar(c *gin.Context) {
	rep, ok := h.analyze(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, radar.Compare(rep.Before, rep.After))
}

// statement handles GET /api/v1/farmers/:farmerID/statement.xlsx
func (h *Handler) statement(c *gin.Context) {
	rep, ok := h.analyze(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteStatement(&buf, rep); err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.xlsx", rep.FarmerID, rep.Result.Month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) analyze(c *gin.Context) (*analysis.Report, bool) {
	refresh := false
	if v := c.Query("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid refresh value %q", v))
			return nil, false
		}
		refresh = b
	}

	rep, err := h.analyzer.Analyze(c.Request.Context(), c.Param("farmerID"), refresh)
	if err != nil {
		h.failErr(c, err)
		return nil, false
	}
	return rep, true
}

// renderRadar handles POST /api/v1/radar?format=svg|json
func (h *Handler) renderRadar(c *gin.Context) {
	var p carbon.VegetationPercentages
	if err := c.ShouldBindJSON(&p); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	switch format := c.DefaultQuery("format", "svg"); format {
	case "json":
		c.JSON(http.StatusOK, radar.Config(p))
	case "svg":
		var buf bytes.Buffer
		if err := radar.SVG(&buf, p, radar.SVGOptions{Title: c.Query("title")}); err != nil {
			h.fail(c, http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
	default:
		h.fail(c, http.StatusBadRequest, fmt.Errorf("unsupported format %q: use svg or json", format))
	}
}

// failErr maps service errors to status codes. Classification problems are
// upstream failures even when the estimator rejected the data.
func (h *Handler) failErr(c *gin.Context, err error) {
	var invalid *carbon.InvalidInputError
	switch {
	case errors.Is(err, analysis.ErrNoSnapshot), errors.Is(err, analysis.ErrBadClassification):
		h.fail(c, http.StatusBadGateway, err)
	case errors.As(err, &invalid):
		h.logger.Warn().
			Str(logging.FieldTraceID, traceIDOf(c)).
			Float64("sum", invalid.Sum).
			Msg("invalid percentages")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    invalid.Error(),
			"sum":      invalid.Sum,
			"trace_id": traceIDOf(c),
		})
	case errors.Is(err, analysis.ErrInvalidFarmerID), errors.Is(err, analysis.ErrInvalidRequest):
		h.fail(c, http.StatusBadRequest, err)
	default:
		h.fail(c, http.StatusInternalServerError, err)
	}
}

func (h *Handler) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error().
			Str(logging.FieldTraceID, traceIDOf(c)).
			Err(err).
			Msg("request failed")
	}
	c.JSON(status, gin.H{
		"error":    err.Error(),
		"trace_id": traceIDOf(c),
	})
}
