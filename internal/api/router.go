package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/logging"
)

// NewRouter builds the gin engine with the standard middleware stack and
// every route registered.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // wildcard origins are the default
		AllowWebSockets:  true,
	}))
	router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	h.RegisterRoutes(router)
	return router
}
