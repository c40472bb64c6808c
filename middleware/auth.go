package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"support-bot/services"
)

// RequireAuth guards agent and ops routes behind a session cookie.
func RequireAuth(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	session, err := services.GetSessionByID(c.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	if session == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired session",
		})
	}

	// Set agent information in locals for downstream handlers
	c.Locals("agent_id", session.AgentID)
	c.Locals("agent_name", session.AgentName)
	c.Locals("email", session.Email)

	// Extend session expiration on activity
	services.ExtendSession(c.Context(), sessionID)

	return c.Next()
}
