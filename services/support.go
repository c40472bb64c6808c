package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"support-bot/models"
)

// SupportService is the inbound pipeline: per-conversation serialization,
// dedup check-and-record, state check, dispatch, delivery, history. The
// webhook layer calls into here and nothing else.
type SupportService struct {
	dedup      DedupStore
	tracker    *Tracker
	dispatcher *Dispatcher
	sender     Sender
	ws         *WebSocketManager // optional, nil disables broadcasts

	mu        sync.Mutex
	convLocks map[string]*sync.Mutex
}

func NewSupportService(dedup DedupStore, tracker *Tracker, dispatcher *Dispatcher, sender Sender, ws *WebSocketManager) *SupportService {
	return &SupportService{
		dedup:      dedup,
		tracker:    tracker,
		dispatcher: dispatcher,
		sender:     sender,
		ws:         ws,
		convLocks:  make(map[string]*sync.Mutex),
	}
}

// InboundResult reports what the pipeline did with one delivery.
type InboundResult struct {
	Info      string `json:"info"`
	Reply     string `json:"response_text,omitempty"`
	Handoff   bool   `json:"handoff,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// lockConversation serializes processing per conversation. Different
// conversations proceed in parallel.
func (s *SupportService) lockConversation(waID string) func() {
	s.mu.Lock()
	lock, ok := s.convLocks[waID]
	if !ok {
		lock = &sync.Mutex{}
		s.convLocks[waID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// HandleInbound processes one webhook delivery. It never returns an error for
// processing failures: those degrade to the escalation reply so the customer
// is not left silent.
func (s *SupportService) HandleInbound(ctx context.Context, msg models.InboundMessage) *InboundResult {
	unlock := s.lockConversation(msg.WaID)
	defer unlock()

	if msg.FromAgent {
		return s.handleAgentAuthored(ctx, msg)
	}

	// Dedup check-and-record happens before any network call so a retried
	// send can never re-trigger it.
	if s.dedup.Seen(msg.WaID, msg.Text, msg.MessageID, msg.ReceivedAt) {
		slog.Info("Duplicate message, skipping",
			"waID", msg.WaID,
			"wamID", msg.MessageID,
		)
		return &InboundResult{Info: "duplicate, ignored", Duplicate: true}
	}

	state, err := s.tracker.State(ctx, msg.WaID)
	if err != nil {
		slog.Error("Failed to load conversation state", "error", err, "waID", msg.WaID)
		s.deliver(ctx, msg.WaID, HandoffAckMsg)
		return &InboundResult{Info: "state unavailable, escalated", Reply: HandoffAckMsg, Handoff: true}
	}

	if err := s.tracker.AppendMessage(ctx, msg.WaID, msg.Text, true); err != nil {
		slog.Error("Failed to append message history", "error", err, "waID", msg.WaID)
	}
	s.broadcast("new_message", msg.WaID, map[string]interface{}{
		"message":        msg.Text,
		"is_from_user":   true,
		"mode":           string(state.Mode),
		"requires_human": state.Mode != models.ModeBot,
		"timestamp":      time.Now().Unix(),
	})

	reply, handoff := s.dispatcher.Dispatch(ctx, msg, state)

	// Announce the handoff only when this message caused it. Messages that
	// arrive while the conversation is already handed off stay new_message
	// events, otherwise every suppressed message would re-alert the consoles.
	if handoff && state.Mode == models.ModeBot {
		s.broadcast("handoff_requested", msg.WaID, map[string]interface{}{
			"message":   msg.Text,
			"timestamp": time.Now().Unix(),
		})
	}

	if reply == "" {
		// Handed-off conversation: recorded, not answered. Intentional silence.
		return &InboundResult{Info: "conversation handled by human, reply suppressed", Handoff: handoff}
	}

	s.deliver(ctx, msg.WaID, reply)

	return &InboundResult{Info: "message processed successfully", Reply: reply, Handoff: handoff}
}

// handleAgentAuthored records an agent message arriving through the provider
// webhook. It unconditionally forces human mode and never answers.
func (s *SupportService) handleAgentAuthored(ctx context.Context, msg models.InboundMessage) *InboundResult {
	if _, err := s.tracker.Transition(ctx, msg.WaID, TriggerAgentMessage, TransitionPayload{
		AgentID: msg.AgentID,
		Reason:  "agent replied",
	}); err != nil {
		slog.Error("Failed to record agent takeover", "error", err, "waID", msg.WaID)
		return &InboundResult{Info: "failed to record agent message"}
	}

	if err := s.tracker.AppendMessage(ctx, msg.WaID, msg.Text, false); err != nil {
		slog.Error("Failed to append agent message history", "error", err, "waID", msg.WaID)
	}

	s.broadcast("agent_message", msg.WaID, map[string]interface{}{
		"message":   msg.Text,
		"agent_id":  msg.AgentID,
		"timestamp": time.Now().Unix(),
	})

	return &InboundResult{Info: "agent message recorded", Handoff: true}
}

// HandleTicket classifies a ticketing-system payload through the same
// pipeline. The reply travels back in the webhook response; ticket delivery
// is the ticketing system's job.
func (s *SupportService) HandleTicket(ctx context.Context, ticketID, subject, description string) *InboundResult {
	convID := "zoho:" + ticketID

	unlock := s.lockConversation(convID)
	defer unlock()

	query := subject + ": " + description
	if s.dedup.Seen(convID, query, "", time.Now()) {
		return &InboundResult{Info: "duplicate, ignored", Duplicate: true}
	}

	state, err := s.tracker.State(ctx, convID)
	if err != nil {
		slog.Error("Failed to load ticket conversation state", "error", err, "ticketID", ticketID)
		return &InboundResult{Info: "state unavailable, escalated", Reply: HandoffAckMsg, Handoff: true}
	}

	if err := s.tracker.AppendMessage(ctx, convID, query, true); err != nil {
		slog.Error("Failed to append ticket history", "error", err, "ticketID", ticketID)
	}

	reply, handoff := s.dispatcher.Dispatch(ctx, models.InboundMessage{
		WaID:       convID,
		Text:       query,
		ReceivedAt: time.Now(),
	}, state)

	if reply == "" {
		return &InboundResult{Info: "ticket handled by human, reply suppressed", Handoff: handoff}
	}

	if err := s.tracker.AppendMessage(ctx, convID, reply, false); err != nil {
		slog.Error("Failed to append ticket reply history", "error", err, "ticketID", ticketID)
	}

	return &InboundResult{Info: "ticket processed successfully", Reply: reply, Handoff: handoff}
}

// SendAgentMessage delivers an agent-console message to the customer and
// forces the conversation into human mode.
func (s *SupportService) SendAgentMessage(ctx context.Context, waID, agentID, text string) error {
	unlock := s.lockConversation(waID)
	defer unlock()

	if _, err := s.tracker.Transition(ctx, waID, TriggerAgentMessage, TransitionPayload{
		AgentID: agentID,
		Reason:  "agent replied",
	}); err != nil {
		return err
	}

	if _, err := s.sender.Send(ctx, waID, text); err != nil {
		return err
	}

	if err := s.tracker.AppendMessage(ctx, waID, text, false); err != nil {
		slog.Error("Failed to append agent message history", "error", err, "waID", waID)
	}

	s.broadcast("agent_message", waID, map[string]interface{}{
		"message":   text,
		"agent_id":  agentID,
		"timestamp": time.Now().Unix(),
	})

	return nil
}

// Claim assigns the conversation to an agent.
func (s *SupportService) Claim(ctx context.Context, waID, agentID string) (*models.Conversation, error) {
	unlock := s.lockConversation(waID)
	defer unlock()

	conv, err := s.tracker.Transition(ctx, waID, TriggerAgentClaim, TransitionPayload{
		AgentID: agentID,
		Reason:  "agent claimed conversation",
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("conversation_claimed", waID, map[string]interface{}{
		"agent_id":  agentID,
		"timestamp": time.Now().Unix(),
	})
	return conv, nil
}

// Resolve returns the conversation to the bot. Fails with ErrConflict when
// the resolving agent is not the assignee.
func (s *SupportService) Resolve(ctx context.Context, waID, agentID string) (*models.Conversation, error) {
	unlock := s.lockConversation(waID)
	defer unlock()

	conv, err := s.tracker.Transition(ctx, waID, TriggerResolve, TransitionPayload{
		AgentID: agentID,
		Reason:  "resolved by agent",
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("conversation_resolved", waID, map[string]interface{}{
		"agent_id":  agentID,
		"timestamp": time.Now().Unix(),
	})
	return conv, nil
}

// Ops surface.

func (s *SupportService) DedupSnapshot() []models.DedupRecord {
	return s.dedup.Snapshot()
}

func (s *SupportService) ClearDedup() {
	s.dedup.Clear()
	slog.Info("Dedup store cleared")
}

func (s *SupportService) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return s.tracker.Conversations(ctx)
}

// ResetConversation forces a conversation back to bot mode regardless of
// assignment. Operational recovery only.
func (s *SupportService) ResetConversation(ctx context.Context, waID string) (*models.Conversation, error) {
	unlock := s.lockConversation(waID)
	defer unlock()

	return s.tracker.Transition(ctx, waID, TriggerTimeout, TransitionPayload{Reason: "operator reset"})
}

// deliver sends a reply and records it in history. Exhausted retries are
// logged; at that point the messaging channel itself is down.
func (s *SupportService) deliver(ctx context.Context, waID, reply string) {
	receipt, err := s.sender.Send(ctx, waID, reply)
	if err != nil {
		slog.Error("Failed to deliver reply", "error", err, "waID", waID)
		return
	}

	slog.Info("Reply delivered",
		"waID", waID,
		"receiptID", receipt.ReceiptID,
		"attempts", receipt.Attempts,
	)

	if err := s.tracker.AppendMessage(ctx, waID, reply, false); err != nil {
		slog.Error("Failed to append reply history", "error", err, "waID", waID)
	}

	s.broadcast("new_message", waID, map[string]interface{}{
		"message":      reply,
		"is_from_user": false,
		"timestamp":    time.Now().Unix(),
	})
}

func (s *SupportService) broadcast(eventType, waID string, data map[string]interface{}) {
	if s.ws == nil {
		return
	}
	data["wa_id"] = waID
	s.ws.Broadcast(BroadcastMessage{
		Type: eventType,
		WaID: waID,
		Data: data,
	})
}
