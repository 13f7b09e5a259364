package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/medsnear/medsnear/internal/pkg/metrics"
)

const (
	apiVersion     = "1.0.0"
	requestTimeout = 15 * time.Second

	readsPerMinute  = 120
	writesPerMinute = 30
)

// deprecatedRoutes are old paths still served for existing clients.
var deprecatedRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/medicines/search",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/catalog/search",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	app.Use(rateLimit(readsPerMinute, func(c *fiber.Ctx) bool { return false }))
	app.Use(rateLimit(writesPerMinute, func(c *fiber.Ctx) bool { return isSafeMethod(c.Method()) }))

	app.Use(securityHeaders)
	app.Use(DeprecationMiddleware(deprecatedRoutes))
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Probes stay outside the timeout wrapper; their checks are bounded already.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	catalog := v1.Group("/catalog")
	catalog.Get("/search", withTimeout(SearchCatalogHandler(deps)))
	catalog.Get("/items/:id", withTimeout(GetItemHandler(deps)))
	catalog.Put("/items/:id", withTimeout(PutItemHandler(deps)))
	catalog.Delete("/items/:id", withTimeout(DeleteItemHandler(deps)))

	pharmacies := v1.Group("/pharmacies")
	pharmacies.Get("/", withTimeout(ListPharmaciesHandler(deps)))
	pharmacies.Post("/", withTimeout(RegisterPharmacyHandler(deps)))
	pharmacies.Get("/nearby", withTimeout(NearbyPharmaciesHandler(deps))) // before :slug
	pharmacies.Get("/:slug", withTimeout(GetPharmacyHandler(deps)))

	v1.Post("/checkout/quote", withTimeout(QuoteHandler(deps)))
	v1.Get("/medicines/search", withTimeout(SearchCatalogHandler(deps)))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

// rateLimit allows perMinute requests per client IP for requests that
// skip does not exempt.
func rateLimit(perMinute int, skip func(*fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Next:       skip,
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

func isSafeMethod(m string) bool {
	return m == fiber.MethodGet || m == fiber.MethodHead || m == fiber.MethodOptions
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("X-API-Version", apiVersion)
	return c.Next()
}
