// Package router assembles the gin engine: middleware chain, versioned API
// group behind the per-tenant rate limiter, and the operational endpoints
// (health, Prometheus metrics) outside it.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/event-notify/internal/handler"
	"github.com/jwalitptl/event-notify/internal/middleware"
)

// Handler registers a resource's routes on the versioned API group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	GlobalRate  rate.Limit
	GlobalBurst int
}

func (c *Config) applyDefaults() {
	if c.GlobalRate <= 0 {
		c.GlobalRate = 100
	}
	if c.GlobalBurst <= 0 {
		c.GlobalBurst = 200
	}
}

type Router struct {
	engine *gin.Engine
}

func New(tenantLimiter *middleware.TenantRateLimiter, cfg Config, handlers ...Handler) *Router {
	cfg.applyDefaults()
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Recovery())

	engine.GET("/health", handler.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	global := middleware.NewGlobalRateLimiter(cfg.GlobalRate, cfg.GlobalBurst)
	api := engine.Group("/api/v1", global.RateLimit(), tenantLimiter.RateLimit())
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return &Router{engine: engine}
}

// Engine exposes the underlying gin engine for http.Server wiring and tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
