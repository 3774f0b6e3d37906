package handlers

import (
	"brontie/internal/repositories/cache"
	"brontie/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewHealthHandler(db *gorm.DB, cacheSvc *cache.CacheService) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheSvc}
}

// Health reports liveness of the process and its dependencies.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "ok",
		"database": "ok",
		"cache":    "ok",
	}
	healthy := true

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		status["database"] = "unavailable"
		healthy = false
	}

	if err := h.cache.HealthCheck(c.Context()); err != nil {
		// Degraded, not down: every cache read has a database fallback.
		status["cache"] = "unavailable"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

// Ready is the readiness probe used by the load balancer.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "not ready")
	}
	return c.SendString("ready")
}
