package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics builds the HTTP metrics middleware and registers /metrics on app.
// The collectors are process wide, so repeated calls share one instance.
func InitMetrics(app *fiber.App, serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
		prom.SetSkipPaths([]string{"/metrics", "/health", "/health/live", "/health/ready"})
	})
	prom.RegisterAt(app, "/metrics")
	return prom
}

// MetricsMiddleware returns the request instrumentation handler.
// A nil prom yields a pass-through handler so tests can skip metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	if prom == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return prom.Middleware
}
