package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rizzbot_http_requests_total",
		Help: "HTTP requests served, by route, method and status.",
	}, []string{"path", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rizzbot_http_request_duration_seconds",
		Help:    "HTTP request latency, by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})
)

func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			// c.Path() is the route pattern, not the raw URL, so proxy
			// wildcard paths stay one series.
			path := c.Path()
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(c.Response().Status)).Inc()
			httpRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
