package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/analytics"
	"github.com/mr1hm/go-disaster-v2v/internal/assistant"
	"github.com/mr1hm/go-disaster-v2v/internal/auth"
	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
	"github.com/mr1hm/go-disaster-v2v/internal/stream"
	"github.com/mr1hm/go-disaster-v2v/internal/v2v"
)

// Ingestor is the part of the ingestion manager the handlers use.
type Ingestor interface {
	Refresh(ctx context.Context) (*ingestion.RefreshResult, error)
	Live(ctx context.Context) ingestion.Result
	Last() (ingestion.Result, bool)
	Refreshing() bool
}

type Deps struct {
	Disasters   repository.DisasterRepository
	Ingestor    Ingestor
	Users       *auth.UserService
	Verifier    *auth.Verifier
	Assistant   *assistant.Service
	Vehicles    *v2v.Service
	Analytics   *analytics.Service
	Broadcaster *stream.Broadcaster
}

type Handler struct {
	disasters   repository.DisasterRepository
	ingestor    Ingestor
	users       *auth.UserService
	verifier    *auth.Verifier
	assistant   *assistant.Service
	vehicles    *v2v.Service
	analytics   *analytics.Service
	broadcaster *stream.Broadcaster
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		disasters:   d.Disasters,
		ingestor:    d.Ingestor,
		users:       d.Users,
		verifier:    d.Verifier,
		assistant:   d.Assistant,
		vehicles:    d.Vehicles,
		analytics:   d.Analytics,
		broadcaster: d.Broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/api-docs", h.docsPage)
	r.GET("/api-docs/openapi.json", h.openAPI)

	protected := auth.Middleware(h.verifier)

	disasters := r.Group("/api/disasters")
	disasters.GET("", h.getDisasters)
	disasters.GET("/recent", h.getRecentDisasters)
	disasters.GET("/feeds", h.getFeeds)
	disasters.POST("/refresh", protected, h.refresh)

	users := r.Group("/api/auth", protected)
	users.POST("/verify", h.verifyUser)
	users.GET("/me", h.getMe)
	users.PUT("/preferences", h.updatePreferences)
	users.DELETE("/me", h.deleteMe)

	chat := r.Group("/api/chat", protected)
	chat.POST("", h.chat)
	chat.POST("/analyze", h.analyzeDisaster)
	chat.POST("/plan", h.emergencyPlan)
	chat.GET("/history", h.chatHistory)
	chat.DELETE("/history/:id", h.deleteChat)

	vehicles := r.Group("/api/v2v", protected)
	vehicles.POST("/vehicles", h.registerVehicle)
	vehicles.GET("/vehicles", h.listVehicles)
	vehicles.GET("/vehicles/:id", h.getVehicle)
	vehicles.PUT("/vehicles/:id/location", h.updateLocation)
	vehicles.PUT("/vehicles/:id/maintenance", h.setMaintenance)
	vehicles.GET("/vehicles/:id/nearby", h.nearbyVehicles)
	vehicles.GET("/vehicles/:id/messages", h.inbox)
	vehicles.GET("/vehicles/:id/stream", h.streamVehicle)
	vehicles.POST("/messages", h.sendMessage)
	vehicles.PUT("/messages/:id/read", h.markRead)
	vehicles.POST("/emergency", h.emergencyBroadcast)

	stats := r.Group("/api/analytics", protected)
	stats.GET("/summary", h.analyticsSummary)
	stats.GET("/snapshot", h.analyticsSnapshot)
	stats.GET("/trends", h.analyticsTrends)
	stats.GET("/hotspots", h.analyticsHotspots)
	stats.GET("/predictions", h.analyticsPredictions)
}

func (h *Handler) health(c *gin.Context) {
	feeds := []ingestion.FeedStatus{}
	if last, ok := h.ingestor.Last(); ok {
		feeds = last.Feeds
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"feeds":              feeds,
		"refreshing":         h.ingestor.Refreshing(),
		"stream_subscribers": h.broadcaster.SubscriberCount(),
		"ai_available":       h.assistant.Available(),
	})
}

// userID returns the caller's id. Only valid behind auth.Middleware.
func userID(c *gin.Context) string {
	identity, _ := auth.IdentityFrom(c)
	return identity.UserID
}

// queryInt parses an optional integer query parameter within [min, max].
func queryInt(c *gin.Context, key string, def, min, max int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, badRequest("%s must be an integer between %d and %d", key, min, max)
	}
	return n, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest("%s must be a number", key)
	}
	return f, nil
}
