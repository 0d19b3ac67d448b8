package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/auth"
)

func (h *Handler) verifyUser(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)

	var profile auth.Profile
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&profile); err != nil {
			fail(c, err)
			return
		}
	}

	user, err := h.users.Verify(c.Request.Context(), identity, profile)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

func (h *Handler) getMe(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var req auth.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	user, err := h.users.UpdatePreferences(c.Request.Context(), userID(c), req.Preferences())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

func (h *Handler) deleteMe(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), userID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": true})
}
