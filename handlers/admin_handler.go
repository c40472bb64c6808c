package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"support-bot/models"
	"support-bot/services"
)

type createAgentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAgent registers a new support agent account.
func CreateAgent(c *fiber.Ctx) error {
	var req createAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name, email and password are required",
		})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 8 characters",
		})
	}

	if existing, err := services.GetAgentByEmail(c.Context(), req.Email); err == nil && existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An agent with this email already exists",
		})
	}

	agent := &models.Agent{
		Name:  req.Name,
		Email: req.Email,
	}
	if err := services.CreateAgent(c.Context(), agent, req.Password); err != nil {
		slog.Error("Failed to create agent", "error", err, "email", req.Email)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create agent",
		})
	}

	slog.Info("Agent created", "agentID", agent.AgentID, "email", agent.Email)
	return c.Status(fiber.StatusCreated).JSON(agent)
}
