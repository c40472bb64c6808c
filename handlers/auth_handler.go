package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"support-bot/models"
	"support-bot/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string        `json:"message"`
	Agent   *models.Agent `json:"agent"`
}

func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	agent, err := services.GetAgentByEmail(c.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to get agent", "error", err, "email", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if !agent.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Account is disabled",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(req.Password)); err != nil {
		slog.Info("Invalid password attempt", "email", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	session, err := services.CreateSession(
		c.Context(),
		agent.AgentID,
		agent.Name,
		agent.Email,
		c.IP(),
		c.Get("User-Agent"),
	)
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    session.SessionID,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	if err := services.UpdateAgentLastLogin(c.Context(), agent.AgentID); err != nil {
		slog.Error("Failed to update last login", "error", err)
	}

	slog.Info("Agent logged in", "agentID", agent.AgentID, "email", agent.Email)

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Message: "Login successful",
		Agent:   agent,
	})
}

func Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID == "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}

	if err := services.DestroySession(c.Context(), sessionID); err != nil {
		slog.Error("Failed to destroy session", "error", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

func GetCurrentAgent(c *fiber.Ctx) error {
	agentID, ok := c.Locals("agent_id").(string)
	if !ok || agentID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not authenticated",
		})
	}

	agent, err := services.GetAgentByID(c.Context(), agentID)
	if err != nil {
		slog.Error("Failed to get agent", "error", err, "agentID", agentID)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Agent not found",
		})
	}

	return c.JSON(agent)
}
