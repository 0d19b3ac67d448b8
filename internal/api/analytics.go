package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/analytics"
)

func windowDays(c *gin.Context) (int, error) {
	return queryInt(c, "days", analytics.DefaultWindowDays, 1, analytics.MaxWindowDays)
}

func (h *Handler) analyticsSummary(c *gin.Context) {
	days, err := windowDays(c)
	if err != nil {
		fail(c, err)
		return
	}
	summary, err := h.analytics.Generate(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, summary)
}

func (h *Handler) analyticsSnapshot(c *gin.Context) {
	snap, err := h.analytics.Latest(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, snap)
}

func (h *Handler) analyticsTrends(c *gin.Context) {
	days, err := windowDays(c)
	if err != nil {
		fail(c, err)
		return
	}
	report, err := h.analytics.Trends(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, report)
}

func (h *Handler) analyticsHotspots(c *gin.Context) {
	days, err := windowDays(c)
	if err != nil {
		fail(c, err)
		return
	}
	hotspots, err := h.analytics.Hotspots(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"window_days": days, "hotspots": hotspots})
}

func (h *Handler) analyticsPredictions(c *gin.Context) {
	days, err := windowDays(c)
	if err != nil {
		fail(c, err)
		return
	}
	predictions, err := h.analytics.Predictions(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"window_days": days, "predictions": predictions})
}
