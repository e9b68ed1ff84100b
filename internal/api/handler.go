package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sntrack/internal/analyzer"
	"sntrack/internal/report"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	reports *report.Service
}

// NewHandler creates a new API handler.
func NewHandler(svc *report.Service) *Handler {
	return &Handler{reports: svc}
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetSeries handles GET /api/series. An empty history yields an empty list.
func (h *Handler) GetSeries(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":  report.Title(r.Criteria),
		"points": r.Points,
	})
}

// GetSummary handles GET /api/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	r, ok := h.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":   report.Title(r.Criteria),
		"summary": r.Summary,
		"watts":   report.Watts(r.Summary.MeanRate),
	})
}

func (h *Handler) build(c *gin.Context) (*report.Report, bool) {
	criteria := analyzer.Criteria{
		Action:      c.Query("action"),
		Mode:        c.Query("mode"),
		BiosVersion: c.Query("bios"),
	}

	var opts *analyzer.Options
	if raw := c.Query("short"); raw != "" {
		short, err := strconv.ParseBool(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'short' flag"})
			return nil, false
		}
		if short {
			o := h.reports.Options()
			o.MinDuration = 0
			opts = &o
		}
	}

	r, err := h.reports.Build(c.Request.Context(), criteria, opts)
	if err != nil && !errors.Is(err, report.ErrNoData) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sample history"})
		return nil, false
	}
	return r, true
}
