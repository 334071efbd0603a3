package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rizzbot-app/rizzbot/config"
)

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// RateLimiter is a fixed-window per-caller limiter backed by redis, applied
// in front of the upstream proxy. It fails open when redis is unreachable so
// a cache outage never takes down suggestion generation.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *log.Logger
}

func NewRateLimiter(rdb *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  perMinute,
		window: time.Minute,
		logger: log.New(log.Writer(), "[RATELIMIT] ", log.LstdFlags),
	}
}

// callerKey prefers the client's anon id header, falling back to IP.
func callerKey(c echo.Context) string {
	if id := c.Request().Header.Get("X-Anon-Id"); id != "" {
		return id
	}
	return c.RealIP()
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.limit <= 0 {
				return next(c)
			}
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:gemini:%s", callerKey(c))
			n, err := rl.rdb.Incr(ctx, key).Result()
			if err != nil {
				rl.logger.Printf("incr %s: %v", key, err)
				return next(c)
			}
			if n == 1 {
				if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
					rl.logger.Printf("expire %s: %v", key, err)
				}
			}
			if n > int64(rl.limit) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
