package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware logs one structured line per request. The message is
// the route pattern so search and item lookups aggregate cleanly; the raw
// path and query length are attributes.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Route().Path
		if route == "" {
			route = path
		}

		requestID, _ := c.Locals("requestid").(string)
		if requestID == "" {
			requestID = c.Get(fiber.HeaderXRequestID, "unknown")
		}

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", requestID),
		}
		if q := c.Query("q"); q != "" {
			attrs = append(attrs, slog.Int("query_len", len(q)))
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		}

		slog.LogAttrs(c.UserContext(), level, method+" "+route, attrs...)

		return err
	}
}
