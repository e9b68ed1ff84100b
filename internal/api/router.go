package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"sntrack/config"
	"sntrack/internal/mw"
	"sntrack/internal/report"
)

// NewRouter creates and configures a new Gin router serving the discharge
// series to external plotting frontends.
func NewRouter(svc *report.Service, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	handler := NewHandler(svc)

	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	burst := int(cfg.RateLimitPerSec)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", handler.Health)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// GET /api/series?action=&mode=&bios=&short=
		api.GET("/series", caching, handler.GetSeries)

		// GET /api/summary?action=&mode=&bios=&short=
		api.GET("/summary", caching, handler.GetSummary)
	}

	return r
}
