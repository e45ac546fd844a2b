// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unibook-api/internal/config"
	"unibook-api/internal/interfaces/http/handler"
	"unibook-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器与中间件
type RouterHandlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Book        *handler.BookHandler
	Generation  *handler.GenerationHandler
	Admin       *handler.AdminHandler
	AuthConfig  middleware.AuthConfig
	RateLimiter middleware.RateLimiter
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
	h      *RouterHandlers
}

// NewWithDeps 创建带完整依赖的路由器
func NewWithDeps(cfg *config.Config, h *RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
		h:      h,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, middleware.DefaultSkipPaths...))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.AccessLog(middleware.DefaultSkipPaths...))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.h.Health.Health)
	r.engine.GET("/ready", r.h.Health.Ready)
	r.engine.GET("/live", r.h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	basePath := r.cfg.Server.HTTP.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	api := r.engine.Group(basePath)
	RegisterV1Routes(api, r.h, r.cfg)
}
