package handlers

import (
	"errors"
	"log"

	"split-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

// rejectOrFail maps an error to the response contract: expected business-rule
// rejections come back as {success:false, error} without error-level noise,
// rate limiting gets a 429, and anything else is a storage failure.
func rejectOrFail(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrRateLimited) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if services.IsBusinessError(err) {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	log.Printf("❌ [HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal error",
	})
}
