package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"virtual-queue-backend/config"
	"virtual-queue-backend/internal/engine"
	"virtual-queue-backend/internal/mw"
	"virtual-queue-backend/internal/notification"
	"virtual-queue-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, eng *engine.Engine, pool *notification.WorkerPool, webpushOptions *webpush.Options, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, eng, pool, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Short-lived cache for read endpoints whose answers age quickly.
	cacheStore := cache.New(cfg.CacheTTL(), 2*cfg.CacheTTL())
	caching := mw.Cache(cacheStore, cfg.CacheTTL())

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/places", caching, handler.GetPlaces)
		api.GET("/places/:place_id/counters", handler.GetCounters)

		api.POST("/places/:place_id/counters/:counter/tickets", handler.JoinQueue)
		api.GET("/places/:place_id/counters/:counter/queue", handler.GetQueueMetrics)
		api.GET("/places/:place_id/counters/:counter/estimate", handler.GetEstimate)
		api.GET("/places/:place_id/counters/:counter/crowd", handler.GetCrowd)
		api.POST("/places/:place_id/counters/:counter/next", handler.CallNext)

		api.POST("/tickets/:code/action", handler.TicketAction)
		api.GET("/users/:user_id/tickets", handler.GetUserTickets)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
