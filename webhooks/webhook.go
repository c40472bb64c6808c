package webhooks

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"support-bot/config"
	"support-bot/models"
	"support-bot/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, svc *services.SupportService) {
	webhook := app.Group("/webhook")

	// Webhook verification endpoint
	webhook.Get("/", verifyWebhook(cfg))

	// Webhook event handler
	webhook.Post("/", handleWebhookEvent(svc))

	// Ticketing provider webhook
	app.Post("/zohoTicket", handleZohoTicket(svc))
}

// verifyWebhook handles the provider's verification handshake
func verifyWebhook(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && token == cfg.VerifyToken {
			slog.Info("Webhook verified successfully")
			return c.SendString(challenge)
		}

		slog.Warn("Webhook verification failed", "mode", mode, "token", token)
		return c.SendStatus(fiber.StatusForbidden)
	}
}

// handleWebhookEvent processes inbound message deliveries. Processing never
// fails the request: only a malformed or incomplete payload is a client
// error, everything past parsing degrades inside the pipeline.
func handleWebhookEvent(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WebhookEvent
		if err := c.BodyParser(&body); err != nil {
			slog.Error("Failed to parse webhook body", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(WebhookResponse{
				Success: false,
				Info:    "Invalid request body",
			})
		}

		msg, skip, err := inboundFromEvent(&body)
		if skip != "" {
			slog.Info("Skipping non-message webhook event", "event", skip)
			return c.JSON(WebhookResponse{
				Success: true,
				Info:    "event acknowledged, skipped",
			})
		}
		if err != nil {
			slog.Error("Webhook payload missing required fields", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(WebhookResponse{
				Success: false,
				Info:    err.Error(),
			})
		}

		slog.Info("Webhook message received",
			"waID", msg.WaID,
			"wamID", msg.MessageID,
			"fromAgent", msg.FromAgent,
		)

		result := svc.HandleInbound(c.Context(), msg)

		return c.JSON(WebhookResponse{
			Success:      true,
			Info:         result.Info,
			ResponseText: result.Reply,
		})
	}
}

// inboundFromEvent normalizes both payload shapes. It returns a non-empty
// skip value for non-message events and an error when required fields are
// missing.
func inboundFromEvent(body *WebhookEvent) (models.InboundMessage, string, error) {
	msg := models.InboundMessage{ReceivedAt: time.Now()}

	if body.Data != nil {
		if body.Data.Event != "" && body.Data.Event != "message" {
			return msg, body.Data.Event, nil
		}
		msg.WaID = body.Data.WaID
		msg.MessageID = body.Data.WamID
		msg.Text = body.Data.Message
		msg.FromAgent = body.Data.FromAgent
		msg.AgentID = body.Data.AgentID
	} else {
		msg.WaID = body.WaID
		msg.Text = body.Message
	}

	if msg.WaID == "" || msg.Text == "" {
		return msg, "", fiber.NewError(fiber.StatusBadRequest, "Missing message or wa_id")
	}

	return msg, "", nil
}

// handleZohoTicket classifies ticket webhooks through the same pipeline. The
// reply rides back in the response body; posting it on the ticket is the
// ticketing system's side.
func handleZohoTicket(svc *services.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var events []ZohoTicketEvent
		if err := c.BodyParser(&events); err != nil {
			slog.Error("Failed to parse zoho ticket body", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(WebhookResponse{
				Success: false,
				Info:    "Invalid request body",
			})
		}

		if len(events) == 0 || events[0].Payload.ID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(WebhookResponse{
				Success: false,
				Info:    "Missing ticket payload",
			})
		}

		payload := events[0].Payload
		slog.Info("Zoho ticket received", "ticketID", payload.ID, "subject", payload.Subject)

		result := svc.HandleTicket(c.Context(), payload.ID, payload.Subject, payload.Description)

		return c.JSON(WebhookResponse{
			Success:      true,
			Info:         result.Info,
			ResponseText: result.Reply,
		})
	}
}
