package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"unibook-api/pkg/logger"
)

// DefaultSkipPaths 探针与指标路径，不做认证与访问日志
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// AccessLog 访问日志中间件
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}
		// 认证中间件在本中间件之后写入用户，日志上下文里拿不到
		if uid := CurrentUserID(c); uid != "" {
			args = append(args, "user_id", uid)
		}

		if status >= 500 {
			logger.Warn(c.Request.Context(), "api request failed", args...)
			return
		}
		logger.Info(c.Request.Context(), "api request", args...)
	}
}
