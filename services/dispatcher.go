package services

import (
	"context"
	"log/slog"
	"math/rand"

	"support-bot/models"
)

// Dispatcher decides the reply for a classified message. It owns the policy
// table but not delivery: it returns the reply text (empty means stay silent)
// and whether the conversation was handed off.
type Dispatcher struct {
	classifier Classifier
	stores     StoreStatusChecker
	tracker    *Tracker
	knowledge  string
	threshold  float64
}

func NewDispatcher(classifier Classifier, stores StoreStatusChecker, tracker *Tracker, knowledge string, confidenceThreshold float64) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		stores:     stores,
		tracker:    tracker,
		knowledge:  knowledge,
		threshold:  confidenceThreshold,
	}
}

// Dispatch runs the policy table. Preconditions: the message passed dedup and
// state is current for this conversation.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage, state *models.Conversation) (string, bool) {
	// A handed-off conversation gets no autonomous reply. History-only.
	if state.Mode != models.ModeBot {
		slog.Info("Bot suppressed, conversation is handed off",
			"waID", msg.WaID,
			"mode", string(state.Mode),
		)
		return "", true
	}

	// Greeting short-circuit: no classifier call for plain greetings.
	if reply, ok := GreetingReply(msg.Text); ok {
		return reply, false
	}

	classification, err := d.classifier.Classify(ctx, msg.Text, d.knowledge)
	if err != nil {
		// Uncertain means escalate, never answer wrong.
		slog.Error("Classification failed, escalating", "error", err, "waID", msg.WaID)
		return d.escalate(ctx, msg.WaID, "classification failure")
	}

	if classification.Intent == models.IntentEscalate {
		return d.escalate(ctx, msg.WaID, "customer requested an agent")
	}
	if classification.Confidence < d.threshold {
		return d.escalate(ctx, msg.WaID, "low classification confidence")
	}

	if classification.Intent == models.IntentStoreStatus {
		if !classification.HasStoreInfo() {
			return StoreStatusMissingMsg, false
		}
		return d.storeStatusReply(ctx, msg.WaID, classification)
	}
	if classification.Intent == models.IntentStoreStatusMissing {
		return StoreStatusMissingMsg, false
	}

	if classification.ResponseText == "" {
		return TechnicalIssueMsg, false
	}
	return classification.ResponseText, false
}

func (d *Dispatcher) storeStatusReply(ctx context.Context, waID string, classification *models.ClassificationResult) (string, bool) {
	status, err := d.stores.CheckStoreStatus(ctx, classification.CompanyName, classification.CommerceID)
	if err != nil {
		// A broken lookup is indistinguishable from a wrong answer.
		slog.Error("Store status lookup failed, escalating", "error", err, "waID", waID)
		return d.escalate(ctx, waID, "store lookup failure")
	}

	switch {
	case status == nil:
		return StoreNotFoundMsg, false
	case *status:
		return StoreActiveMsg(classification.CommerceID, classification.CompanyName), false
	default:
		return StoreInactiveMsg(classification.CommerceID, classification.CompanyName), false
	}
}

func (d *Dispatcher) escalate(ctx context.Context, waID, reason string) (string, bool) {
	if _, err := d.tracker.Transition(ctx, waID, TriggerEscalate, TransitionPayload{Reason: reason}); err != nil {
		slog.Error("Failed to record escalation", "error", err, "waID", waID)
	}
	return HandoffAckMsg, true
}

// GreetingReply returns a canned greeting when the normalized text exactly
// matches one of the known greeting phrases. The pick is random; callers and
// tests should only rely on membership in GreetingMessages.
func GreetingReply(text string) (string, bool) {
	normalized := normalizeText(text)
	for _, greeting := range BasicGreetings {
		if normalized == greeting {
			return GreetingMessages[rand.Intn(len(GreetingMessages))], true
		}
	}
	return "", false
}
