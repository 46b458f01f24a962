package controllers

import (
	"context"
	"time"

	"rawdahkids_go/database"

	"github.com/gofiber/fiber/v2"
)

// HealthController reports service liveness for load balancers and uptime
// checks. Redis being down degrades the status but does not fail it, since
// the app falls back to direct DB writes.
type HealthController struct{}

func (hc *HealthController) Health(c *fiber.Ctx) error {
	status := "ok"
	checks := fiber.Map{}

	sqlDB, err := database.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "unhealthy"
		checks["database"] = "down"
	} else {
		checks["database"] = "up"
	}

	if rc := database.GetRedisClient(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			if status == "ok" {
				status = "degraded"
			}
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	} else {
		if status == "ok" {
			status = "degraded"
		}
		checks["redis"] = "disabled"
	}

	code := fiber.StatusOK
	if status == "unhealthy" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}
