package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/service"
	"docstore/internal/sweep"
)

// AdminCleanup triggers a full sweep pass and returns its report.
func AdminCleanup(sw *sweep.Sweeper) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report := sw.SweepAll(c.UserContext())
		return c.JSON(report)
	}
}

// AdminPerformance reports physical storage consumption against the metadata
// record count.
func AdminPerformance(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.Usage(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	}
}

// HealthCheck probes the backing store through the given check.
func HealthCheck(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers as long as the process is up.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
