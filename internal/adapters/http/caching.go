package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type cacheRule struct {
	prefix string
	exact  bool
	value  string
}

// cacheRules are checked in order; the first match wins.
var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, value: "no-cache"},
	{prefix: "/v1/ready", exact: true, value: "no-cache"},
	{prefix: "/metrics", exact: true, value: "no-store"},
	{prefix: "/ws", exact: true, value: "no-store"},
	{prefix: "/v1/catalog/items/", value: "public, max-age=60"}, // stock moves
	{prefix: "/v1/pharmacies", value: "public, max-age=600"},
	{prefix: "/docs", value: "public, max-age=3600"},
	{prefix: "/v1/", value: "public, max-age=60"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if (r.exact && path == r.prefix) || (!r.exact && strings.HasPrefix(path, r.prefix)) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets a default Cache-Control on successful GET responses.
// Handlers that set their own header win; error responses are never cached.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if status := c.Response().StatusCode(); err != nil || status >= 400 {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}
