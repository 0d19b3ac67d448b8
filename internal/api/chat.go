package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/assistant"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type chatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
	Context string `json:"context" binding:"max=2000"`
}

// analyzeRequest names a cached disaster or carries one inline.
type analyzeRequest struct {
	DisasterID string           `json:"disaster_id"`
	Disaster   *models.Disaster `json:"disaster"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	entry, err := h.assistant.Ask(c.Request.Context(), userID(c), req.Message, req.Context)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, entry)
}

func (h *Handler) analyzeDisaster(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	var d *models.Disaster
	switch {
	case req.DisasterID != "":
		found, err := h.disasters.GetByID(c.Request.Context(), req.DisasterID)
		if err != nil {
			fail(c, err)
			return
		}
		d = found
	case req.Disaster != nil && req.Disaster.Title != "":
		d = req.Disaster
	default:
		fail(c, badRequest("disaster_id or disaster is required"))
		return
	}

	entry, err := h.assistant.AnalyzeDisaster(c.Request.Context(), userID(c), *d)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, entry)
}

func (h *Handler) emergencyPlan(c *gin.Context) {
	var req assistant.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	entry, err := h.assistant.EmergencyPlan(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, entry)
}

func (h *Handler) chatHistory(c *gin.Context) {
	var category *models.ChatCategory
	if raw := c.Query("category"); raw != "" {
		cat := models.ChatCategory(raw)
		switch cat {
		case models.ChatCategoryChat, models.ChatCategoryAnalysis, models.ChatCategoryPlan:
			category = &cat
		default:
			fail(c, badRequest("unknown category %q", raw))
			return
		}
	}
	limit, err := queryInt(c, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		fail(c, err)
		return
	}

	entries, err := h.assistant.History(c.Request.Context(), userID(c), category, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entries)
}

func (h *Handler) deleteChat(c *gin.Context) {
	if err := h.assistant.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}
