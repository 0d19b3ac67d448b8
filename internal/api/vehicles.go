package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/stream"
	"github.com/mr1hm/go-disaster-v2v/internal/v2v"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

type maintenanceRequest struct {
	Maintenance *bool `json:"maintenance" binding:"required"`
}

func (h *Handler) registerVehicle(c *gin.Context) {
	var req v2v.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	v, err := h.vehicles.Register(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, v)
}

func (h *Handler) listVehicles(c *gin.Context) {
	vs, err := h.vehicles.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, vs)
}

func (h *Handler) getVehicle(c *gin.Context) {
	v, err := h.vehicles.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, v)
}

func (h *Handler) updateLocation(c *gin.Context) {
	var req v2v.LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	v, err := h.vehicles.UpdateLocation(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, v)
}

func (h *Handler) setMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	v, err := h.vehicles.SetMaintenance(c.Request.Context(), userID(c), c.Param("id"), *req.Maintenance)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, v)
}

func (h *Handler) nearbyVehicles(c *gin.Context) {
	radius, err := queryFloat(c, "radius_km", h.vehicles.DefaultRadius())
	if err != nil {
		fail(c, err)
		return
	}

	nearby, err := h.vehicles.FindNearby(c.Request.Context(), userID(c), c.Param("id"), radius)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"radius_km": radius, "count": len(nearby), "vehicles": nearby})
}

func (h *Handler) inbox(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultInboxLimit, 1, maxInboxLimit)
	if err != nil {
		fail(c, err)
		return
	}

	msgs, err := h.vehicles.Inbox(c.Request.Context(), userID(c), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, msgs)
}

// streamVehicle upgrades to a websocket that carries messages addressed to
// the vehicle and broadcast disaster alerts.
func (h *Handler) streamVehicle(c *gin.Context) {
	v, err := h.vehicles.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := stream.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		zap.L().Warn("websocket upgrade failed", zap.String("vehicle_id", v.ID), zap.Error(err))
		return
	}
	stream.ServeWS(c.Request.Context(), conn, h.broadcaster, v.ID)
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req v2v.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	m, err := h.vehicles.SendMessage(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, m)
}

func (h *Handler) markRead(c *gin.Context) {
	m, err := h.vehicles.MarkRead(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, m)
}

func (h *Handler) emergencyBroadcast(c *gin.Context) {
	var req v2v.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	res, err := h.vehicles.Broadcast(c.Request.Context(), userID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, res)
}
