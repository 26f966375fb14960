package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"commentboard/internal/database"
)

// HealthCheck godoc
// @Summary Service health
// @Description Database connectivity plus the state of the optional services.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := database.Ping(ctx, s.db); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":   false,
			"status":    "unhealthy",
			"timestamp": now,
			"error":     "Database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"status":    "healthy",
		"timestamp": now,
		"services": fiber.Map{
			"database":  "connected",
			"redis":     s.redisStatus(ctx),
			"api":       "operational",
			"websocket": fiber.Map{"connections": s.hub.ConnectionCount(), "subscribers": s.hub.SubscriberCount()},
		},
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis only backs caches,
// so an unreachable Redis is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    s.redisStatus(ctx),
		},
		"time": time.Now(),
	})
}

func (s *Server) redisStatus(ctx context.Context) string {
	if s.redis == nil {
		return "unavailable"
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
