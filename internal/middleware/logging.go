package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/blog/backend/internal/metrics"
)

// RequestLogger logs one structured line per request and records HTTP metrics.
func RequestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			l.ErrorContext(c.Request.Context(), "request", attrs...)
		case status >= 400:
			l.WarnContext(c.Request.Context(), "request", attrs...)
		default:
			l.InfoContext(c.Request.Context(), "request", attrs...)
		}
	}
}
