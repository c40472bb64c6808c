package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"support-bot/services"
)

// Debug/ops surface for operational recovery: inspect and clear dedup state,
// inspect conversations, force a conversation back to the bot.

func GetDedupEntries(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records := svc.DedupSnapshot()
		return c.JSON(fiber.Map{
			"entries": records,
			"count":   len(records),
		})
	}
}

func ClearDedupEntries(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc.ClearDedup()
		return c.JSON(fiber.Map{
			"message": "Dedup store cleared",
		})
	}
}

func GetDebugConversations(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conversations, err := svc.Conversations(c.Context())
		if err != nil {
			slog.Error("Failed to list conversations", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list conversations",
			})
		}

		return c.JSON(fiber.Map{
			"conversations": conversations,
			"count":         len(conversations),
		})
	}
}

func ResetConversation(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		waID := c.Params("waID")
		if waID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "waID is required",
			})
		}

		conv, err := svc.ResetConversation(c.Context(), waID)
		if err != nil {
			slog.Error("Failed to reset conversation", "error", err, "waID", waID)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to reset conversation",
			})
		}

		slog.Info("Conversation reset by operator", "waID", waID)
		return c.JSON(conv)
	}
}
