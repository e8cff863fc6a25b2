// Package router 提供 HTTP 路由配置
package router

import (
	"z-novel-writer/internal/config"
	"z-novel-writer/internal/interfaces/http/handler"
	"z-novel-writer/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	deps        *handler.Deps
	rateLimiter middleware.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, deps *handler.Deps, rateLimiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:      gin.New(),
		cfg:         cfg,
		deps:        deps,
		rateLimiter: rateLimiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
	}, r.rateLimiter))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	healthHandler := handler.NewHealthHandler()

	r.engine.GET("/health", healthHandler.Health)
	r.engine.GET("/ready", healthHandler.Ready)
	r.engine.GET("/live", healthHandler.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	settingHandler := handler.NewSettingHandler(r.deps)
	chapterHandler := handler.NewChapterHandler(r.deps)
	retrievalHandler := handler.NewRetrievalHandler(r.deps)

	v1 := r.engine.Group("/v1")
	{
		project := v1.Group("/projects/:project")
		{
			project.POST("/setting", settingHandler.GenerateSetting)
			project.GET("/setting", settingHandler.GetSetting)
			project.POST("/directory", settingHandler.GenerateDirectory)
			project.GET("/directory", settingHandler.GetDirectory)

			chapters := project.Group("/chapters/:num")
			{
				chapters.POST("/draft", chapterHandler.Draft)
				chapters.POST("/finalize", chapterHandler.Finalize)
				chapters.GET("", chapterHandler.GetChapter)
				chapters.GET("/outline", chapterHandler.GetOutline)
			}

			project.GET("/state", chapterHandler.GetState)
			project.POST("/knowledge/import", retrievalHandler.Import)
			project.POST("/retrieval/query", retrievalHandler.Query)
		}
	}
}
