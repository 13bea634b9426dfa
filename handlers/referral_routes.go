// handlers/referral_routes.go
package handlers

import (
	"split-rewards-system/middleware"
	"split-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// Idempotent: returns the stored code or generates one.
	securedGroup.Post("/s/referral/code", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		code, err := referralService.EnsureCode(userID)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"code":    code,
		})
	})

	// Validation reveals existence only, never the referrer.
	securedGroup.Post("/s/referral/validate", func(c *fiber.Ctx) error {
		var req struct {
			Code string `json:"code" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		requesterID, _ := c.Locals("user_id").(string)

		result, err := referralService.Validate(req.Code, requesterID)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"exists":  result.Exists,
		})
	})

	// The signup write path: user from context, referrer by code or id.
	securedGroup.Post("/s/referral/track", func(c *fiber.Ctx) error {
		var req struct {
			Code       string `json:"code"`
			ReferrerID string `json:"referrer_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		userID := c.Locals("user_id").(string)

		result, err := referralService.Track(userID, req.Code, req.ReferrerID)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"referrer_id": result.ReferrerID,
			"referral_id": result.ReferralID,
			"duplicate":   result.Duplicate,
		})
	})

	// Service-to-service: the split service reports a referred user's first split.
	securedGroup.Post("/s/referral/first-split", func(c *fiber.Ctx) error {
		var req struct {
			ReferrerID     string  `json:"referrer_id" validate:"required"`
			ReferredUserID string  `json:"referred_user_id" validate:"required"`
			SplitAmount    float64 `json:"split_amount" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		result, err := referralService.AwardFirstSplitMilestone(req.ReferrerID, req.ReferredUserID, req.SplitAmount)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"awarded":      result.Awarded,
			"total_points": result.TotalPoints,
		})
	})
}
