package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"unibook-api/internal/infrastructure/persistence/redis"
	"unibook-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量，大于 RequestsPerSecond 时窗口相应拉长
	Burst int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// window 将 rps/burst 换算为滑动窗口的容量与长度
func (cfg RateLimitConfig) window() (int, time.Duration) {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 100
	}
	if cfg.Burst <= rps {
		return rps, time.Second
	}
	return cfg.Burst, time.Duration(float64(time.Second) * float64(cfg.Burst) / float64(rps))
}

// RateLimit 限流中间件，按登录用户或客户端 IP 计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit, window := cfg.window()

	return func(c *gin.Context) {
		subject := CurrentUserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		allowed, err := limiter.Allow(c.Request.Context(), redis.BuildRateLimitKey(subject, endpoint), limit, window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
