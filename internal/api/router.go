package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"pool-status-backend/config"
	"pool-status-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router around the handler.
func NewRouter(h *Handler, srv config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(srv.RateLimitPerSec), 5, srv.RequestIPHeader)

	cacheTTL := time.Duration(srv.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	// refresh=true must reach the forecast cache rather than a stale
	// middleware copy.
	caching := mw.Cache(cacheStore, cacheTTL, func(c *gin.Context) bool {
		return c.Query("refresh") == "true"
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/occupancy", h.GetOccupancy)
		api.POST("/occupancy/reconnect", h.PostReconnect)
		api.GET("/occupancy/ws", h.hub.Handle)
		api.GET("/occupancy/history", caching, h.GetHistory)

		api.GET("/forecast", caching, h.GetForecast)
		api.POST("/forecast/refresh", h.PostForecastRefresh)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
