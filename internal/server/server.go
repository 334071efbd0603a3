package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rizzbot-app/rizzbot/config"
	"github.com/rizzbot-app/rizzbot/internal/store"
)

// Run validates configuration, opens the datastore and serves the API on the
// configured address.
func Run(cfg *config.Config) error {
	ctx := context.Background()

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	st, err := store.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}

	var limiter *RateLimiter
	if cfg.Storage.Redis.Host != "" {
		rdb, err := newRedisClient(ctx, cfg.Storage.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		limiter = NewRateLimiter(rdb, cfg.Gemini.RateLimitPerMinute)
	}

	if cfg.Gemini.APIKey == "" {
		log.Printf("[HTTP] warning: gemini.api_key not configured; /api/gemini will return 500")
	}

	e := NewRouter(cfg, st, limiter)
	return e.Start(cfg.Server.Address)
}

// NewRouter builds the echo instance with all middleware and routes mounted.
func NewRouter(cfg *config.Config, st *store.Store, limiter *RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		payload := interface{}(nil)
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				payload = map[string]interface{}{"error": m}
			default:
				payload = m
			}
		} else {
			payload = map[string]interface{}{"error": err.Error()}
		}
		if code == http.StatusMethodNotAllowed {
			payload = map[string]interface{}{"error": "Method not allowed"}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, payload)
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "x-goog-api-key"},
	}))
	e.Use(requestMetrics())

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	(&UsersHandler{Store: st}).Register(api.Group("/users"))
	(&SessionsHandler{Store: st}).Register(api.Group("/sessions"))
	(&PersonasHandler{Store: st}).Register(api.Group("/personas"))
	(&StyleProfilesHandler{Store: st}).Register(api.Group("/style_profiles"))
	(&MemoriesHandler{Store: st}).Register(api.Group("/memories"))
	(&FeedbackHandler{Store: st}).Register(api.Group("/feedback"))
	(&TherapistSessionsHandler{Store: st}).Register(api.Group("/therapist_sessions"))

	gemini := NewGeminiHandler(cfg.Gemini)
	g := api.Group("/gemini")
	if limiter != nil {
		g.Use(limiter.Middleware())
	}
	gemini.Register(g)

	return e
}
