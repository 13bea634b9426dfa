// handlers/admin_routes.go
package handlers

import (
	"split-rewards-system/middleware"
	"split-rewards-system/models"
	"split-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, ledger *services.PointsLedger, questTracker *services.QuestTracker, referralService *services.ReferralService, auditor *services.LedgerAuditor) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	// Manual adjustment: bypasses the community badge bonus.
	adminGroup.Post("/points/adjust", func(c *fiber.Ctx) error {
		var req struct {
			UserID      string `json:"user_id" validate:"required,uuid"`
			Amount      int64  `json:"amount" validate:"required,min=1"`
			Description string `json:"description" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Description == "" {
			req.Description = "Manual adjustment"
		}

		result, err := ledger.Award(req.UserID, req.Amount, models.SourceAdminAdjustment, "", req.Description, nil, nil)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"message":      "points granted successfully",
			"user_id":      req.UserID,
			"awarded":      result.Awarded,
			"total_points": result.TotalPoints,
		})
	})

	adminGroup.Post("/quests", func(c *fiber.Ctx) error {
		var req struct {
			Title string `json:"title" validate:"required,max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		quest, err := questTracker.RegisterQuest(req.Title)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(quest)
	})

	adminGroup.Post("/quests/:code/retire", func(c *fiber.Ctx) error {
		if err := questTracker.RetireQuest(c.Params("code")); err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{"message": "quest retired"})
	})

	// One-time migration: canonicalize legacy mixed-case codes.
	adminGroup.Post("/referral/normalize-codes", func(c *fiber.Ctx) error {
		changed, err := referralService.NormalizeStoredCodes()
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{"message": "codes normalized", "changed": changed})
	})

	adminGroup.Post("/ledger/export", func(c *fiber.Ctx) error {
		url, err := auditor.RunExport()
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{"message": "export uploaded", "url": url})
	})
}
