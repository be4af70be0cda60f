package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yasut0ra/mini-task/internal/config"
	"github.com/yasut0ra/mini-task/internal/middleware"
)

func rateLimitEngine(client *redis.Client, cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.RateLimit(client, cfg, zerolog.Nop()))
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	engine := rateLimitEngine(nil, config.RateLimitConfig{
		Enabled: false,
		Window:  15 * time.Minute,
		Max:     100,
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

// An enabled limiter with a zero window or zero max has no meaningful bucket
// to count into; requests pass through instead of tripping a division by zero.
func TestRateLimitZeroWindowTreatedAsDisabled(t *testing.T) {
	// The client is never exercised: the limiter must short-circuit before
	// touching redis.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	for _, cfg := range []config.RateLimitConfig{
		{Enabled: true, Window: 0, Max: 100},
		{Enabled: true, Window: 15 * time.Minute, Max: 0},
	} {
		engine := rateLimitEngine(client, cfg)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
