package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, e.g. /v1/medicines/search or /v1/things/:id
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var match *DeprecatedRoute
		for i := range deprecated {
			if matchPattern(c.Path(), deprecated[i].Path) {
				match = &deprecated[i]
				break
			}
		}
		if match == nil {
			return c.Next()
		}

		// Headers go on after the handler so pagination Link headers are
		// extended rather than replaced.
		err := c.Next()

		// RFC 8594
		c.Set("Deprecation", "true")
		c.Set("Sunset", match.SunsetDate.UTC().Format(time.RFC1123))

		if match.Alternative != "" {
			c.Append("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, match.Alternative))
		}

		days := time.Until(match.SunsetDate).Hours() / 24
		c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))

		return err
	}
}

// matchPattern reports whether path matches a route pattern whose ":name"
// segments match any single non-empty segment.
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}

	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return false
	}
	for i := range qs {
		if strings.HasPrefix(qs[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != qs[i] {
			return false
		}
	}
	return true
}
