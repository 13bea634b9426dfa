// handlers/reward_routes.go
package handlers

import (
	"strconv"

	"split-rewards-system/middleware"
	"split-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, questTracker *services.QuestTracker, txRewarder *services.TransactionRewarder, ledger *services.PointsLedger, users *services.UserDirectory) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Post("/s/quests/complete", func(c *fiber.Ctx) error {
		var req struct {
			QuestType string `json:"quest_type" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		userID := c.Locals("user_id").(string)

		result, err := questTracker.CompleteQuest(userID, req.QuestType)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"awarded":      result.Awarded,
			"total_points": result.TotalPoints,
			"multiplier":   result.Multiplier,
		})
	})

	securedGroup.Get("/s/quests/:quest_type", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		record, err := questTracker.GetQuestStatus(userID, c.Params("quest_type"))
		if err != nil {
			return rejectOrFail(c, err)
		}
		if record == nil {
			return c.JSON(fiber.Map{"completed": false})
		}
		return c.JSON(fiber.Map{
			"completed":    record.Completed,
			"completed_at": record.CompletedAt,
			"points":       record.Points,
		})
	})

	// Service-to-service: the transaction processor reports a settled transaction.
	securedGroup.Post("/s/points/transaction", func(c *fiber.Ctx) error {
		var req struct {
			UserID    string  `json:"user_id" validate:"required"`
			Amount    float64 `json:"amount" validate:"required"`
			Signature string  `json:"signature" validate:"required"`
			TaskType  string  `json:"task_type"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		result, err := txRewarder.AwardTransactionPoints(req.UserID, req.Amount, req.Signature, req.TaskType)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"awarded":      result.Awarded,
			"total_points": result.TotalPoints,
			"duplicate":    result.Duplicate,
		})
	})

	securedGroup.Get("/s/points/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		var season *int
		if s := c.Query("season"); s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				season = &v
			}
		}

		entries, total, err := ledger.History(userID, page, size, season)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"transactions": entries,
			"page":         page,
			"size":         size,
			"total_items":  total,
		})
	})

	securedGroup.Get("/s/points/balance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		user, err := users.GetUser(userID)
		if err != nil {
			return rejectOrFail(c, err)
		}
		return c.JSON(fiber.Map{
			"points":              user.Points,
			"total_points_earned": user.TotalPointsEarned,
			"points_last_updated": user.PointsLastUpdated,
			"referral_count":      user.ReferralCount,
		})
	})
}
