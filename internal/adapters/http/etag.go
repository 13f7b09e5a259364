package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET/HEAD responses and answers 304 when the
// client's If-None-Match already names the current representation. A tag set
// by the handler (e.g. from a listing's updated_at) wins over the body hash.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		m := c.Method()
		if (m != fiber.MethodGet && m != fiber.MethodHead) || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		etag := string(c.Response().Header.Peek(fiber.HeaderETag))
		if etag == "" {
			body := c.Response().Body()
			if len(body) == 0 {
				return nil
			}
			etag = bodyETag(body)
			c.Set(fiber.HeaderETag, etag)
		}

		if etagMatches(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

func bodyETag(body []byte) string {
	h := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(h[:8]) + `"`
}

// etagMatches applies the weak comparison of RFC 9110 to an If-None-Match
// list.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
