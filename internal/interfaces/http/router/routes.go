package router

import (
	"github.com/gin-gonic/gin"

	"unibook-api/internal/config"
	"unibook-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, cfg *config.Config) {
	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             cfg.Security.RateLimit.Burst,
	}, h.RateLimiter)
	authRequired := middleware.Auth(h.AuthConfig)

	// 认证（匿名访问，按 IP 限流）
	auth := v1.Group("/auth", rateLimit)
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/verify", h.Auth.Verify)
		auth.POST("/resend-code", h.Auth.ResendCode)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", authRequired, h.Auth.Me)
	}

	// 书籍
	books := v1.Group("/books", authRequired, rateLimit)
	{
		books.GET("", middleware.RequirePermission(middleware.PermBookRead), h.Book.ListBooks)
		books.POST("", middleware.RequirePermission(middleware.PermBookWrite), h.Book.CreateBook)
		books.GET("/:id", middleware.RequirePermission(middleware.PermBookRead), h.Book.GetBook)
		books.PUT("/:id", middleware.RequirePermission(middleware.PermBookWrite), h.Book.UpdateBook)
		books.DELETE("/:id", middleware.RequirePermission(middleware.PermBookWrite), h.Book.DeleteBook)

		// 生成流程
		gen := books.Group("/:id/generation", middleware.RequirePermission(middleware.PermBookGenerate))
		{
			gen.GET("", h.Generation.GetStatus)
			gen.POST("/start", h.Generation.Start)
			gen.POST("/requirement", h.Generation.SubmitRequirement)
			gen.POST("/outline", h.Generation.SubmitOutline)
			gen.POST("/chapters", h.Generation.SubmitChapter)
			gen.POST("/reset", h.Generation.Reset)
			gen.POST("/logs", h.Generation.AppendLog)
		}
	}

	// 管理端
	admin := v1.Group("/admin", authRequired, middleware.RequireAdmin())
	{
		admin.GET("/users", h.Admin.ListUsers)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.GET("/books", h.Admin.ListBooks)
		admin.DELETE("/books/:id", h.Admin.DeleteBook)
	}
}
