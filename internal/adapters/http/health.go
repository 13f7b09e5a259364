package http

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

// HealthHandler is the liveness probe. It never touches backing services.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": version,
		})
	}
}

// probe is one backing service checked by the readiness endpoint.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) string
}

func pingProbe(name string, p Pinger, required bool) probe {
	return probe{name: name, required: required, check: func(ctx context.Context) string {
		if p == nil {
			return "not configured"
		}
		if err := p.Ping(ctx); err != nil {
			return "error: " + err.Error()
		}
		return "ok"
	}}
}

func (d *Dependencies) probes() []probe {
	return []probe{
		pingProbe("database", d.DB, true),
		pingProbe("cache", d.Cache, false),
		{name: "nats", check: func(context.Context) string {
			switch {
			case d.NATS == nil:
				return "not configured"
			case d.NATS.IsConnected():
				return "ok"
			default:
				return "disconnected"
			}
		}},
	}
}

// ReadyHandler probes backing services in parallel. Search can run from the
// database alone, so only the database failing makes the replica unready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string)
			ready  = true
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, p := range deps.probes() {
			g.Go(func() error {
				result := p.check(gctx)
				mu.Lock()
				defer mu.Unlock()
				checks[p.name] = result
				if p.required && result != "ok" {
					ready = false
				}
				return nil
			})
		}
		_ = g.Wait()

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
