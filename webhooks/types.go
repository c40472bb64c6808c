package webhooks

// WebhookEvent is the inbound payload from the messaging provider. The
// production form wraps the message in "data"; the flat form ("message" +
// "wa_id" at top level) is what test tooling posts.
type WebhookEvent struct {
	Data *EventData `json:"data,omitempty"`

	// Flat test format
	Message string `json:"message,omitempty"`
	WaID    string `json:"wa_id,omitempty"`
}

// EventData is the provider-wrapped envelope
type EventData struct {
	Message   string `json:"message"`
	WaID      string `json:"wa_id"`
	WamID     string `json:"wam_id,omitempty"`
	Event     string `json:"event,omitempty"`
	FromAgent bool   `json:"from_agent,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
}

// WebhookResponse is returned for every processed delivery
type WebhookResponse struct {
	Success      bool   `json:"success"`
	Info         string `json:"info"`
	ResponseText string `json:"response_text,omitempty"`
}

// ZohoTicketEvent is one entry of the ticketing provider's webhook array
type ZohoTicketEvent struct {
	Payload ZohoTicketPayload `json:"payload"`
}

// ZohoTicketPayload carries the ticket fields used for classification
type ZohoTicketPayload struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}
