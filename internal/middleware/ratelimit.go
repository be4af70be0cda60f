package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yasut0ra/mini-task/internal/config"
)

// RateLimit is a fixed-window counter per client IP backed by redis. It fails
// open when redis is unreachable: throttling is not worth an outage.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	// A zero window or limit would divide by zero below; treat it as disabled.
	disabled := !cfg.Enabled || client == nil || cfg.Window <= 0 || cfg.Max <= 0

	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		pipe := client.TxPipeline()
		count := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, cfg.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn().Err(err).Msg("rate limit counter unavailable")
			c.Next()
			return
		}

		if count.Val() > int64(cfg.Max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too_many_requests",
			})
			return
		}

		c.Next()
	}
}
