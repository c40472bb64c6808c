package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"support-bot/services"
)

type conversationActionRequest struct {
	WaID string `json:"wa_id"`
}

type agentMessageRequest struct {
	WaID    string `json:"wa_id"`
	Message string `json:"message"`
}

// ClaimConversation assigns the conversation to the logged-in agent.
func ClaimConversation(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req conversationActionRequest
		if err := c.BodyParser(&req); err != nil || req.WaID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "wa_id is required",
			})
		}

		agentID, _ := c.Locals("agent_id").(string)

		conv, err := svc.Claim(c.Context(), req.WaID, agentID)
		if err != nil {
			slog.Error("Failed to claim conversation", "error", err, "waID", req.WaID)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to claim conversation",
			})
		}

		return c.JSON(conv)
	}
}

// ResolveConversation returns the conversation to the bot. Only the assigned
// agent (or anyone, when unassigned) may resolve.
func ResolveConversation(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req conversationActionRequest
		if err := c.BodyParser(&req); err != nil || req.WaID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "wa_id is required",
			})
		}

		agentID, _ := c.Locals("agent_id").(string)

		conv, err := svc.Resolve(c.Context(), req.WaID, agentID)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Conversation is assigned to another agent",
				})
			}
			slog.Error("Failed to resolve conversation", "error", err, "waID", req.WaID)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to resolve conversation",
			})
		}

		return c.JSON(conv)
	}
}

// SendAgentMessage delivers a message to the customer on behalf of the
// logged-in agent and takes the conversation over.
func SendAgentMessage(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req agentMessageRequest
		if err := c.BodyParser(&req); err != nil || req.WaID == "" || req.Message == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "wa_id and message are required",
			})
		}

		agentID, _ := c.Locals("agent_id").(string)

		if err := svc.SendAgentMessage(c.Context(), req.WaID, agentID, req.Message); err != nil {
			slog.Error("Failed to send agent message", "error", err, "waID", req.WaID)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to deliver message",
			})
		}

		return c.JSON(fiber.Map{
			"message": "Message sent",
		})
	}
}

// GetConversations lists conversations for the agent console.
func GetConversations(svc *services.SupportService) fiber.Handler {
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
