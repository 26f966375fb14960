package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	httpMetrics     *fiberprometheus.FiberPrometheus
	httpMetricsOnce sync.Once
)

// Metrics registers the /metrics endpoint on app and returns the HTTP RED
// metrics middleware. Collectors are registered once per process.
func Metrics(app *fiber.App, serviceName string) fiber.Handler {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	httpMetrics.RegisterAt(app, "/metrics")
	return httpMetrics.Middleware
}
