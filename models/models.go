package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode is who currently owns a conversation.
type Mode string

const (
	ModeBot          Mode = "bot"
	ModePendingHuman Mode = "pending_human"
	ModeHuman        Mode = "human"
)

// Conversation tracks per-customer ownership state and message history.
// Conversations are created lazily on first contact and never deleted, only
// transitioned.
type Conversation struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	WaID           string                `bson:"wa_id" json:"wa_id"`
	Mode           Mode                  `bson:"mode" json:"mode"`
	AssignedAgent  string                `bson:"assigned_agent,omitempty" json:"assigned_agent,omitempty"`
	Reason         string                `bson:"reason,omitempty" json:"reason,omitempty"`
	LastTransition time.Time             `bson:"last_transition" json:"last_transition"`
	Messages       []ConversationMessage `bson:"messages,omitempty" json:"messages,omitempty"`
	CreatedAt      time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `bson:"updated_at" json:"updated_at"`
}

// ConversationMessage is one history entry. Messages are appended even while
// the bot is suppressed so agents see the full thread.
type ConversationMessage struct {
	Content    string    `bson:"content" json:"content"`
	IsFromUser bool      `bson:"is_from_user" json:"is_from_user"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// InboundMessage is a normalized webhook delivery. Immutable once parsed.
type InboundMessage struct {
	WaID       string    `json:"wa_id"`
	MessageID  string    `json:"wam_id,omitempty"` // provider-assigned, may be absent
	Text       string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
	FromAgent  bool      `json:"from_agent,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
}

// DedupRecord is one seen-message entry in the dedup store.
type DedupRecord struct {
	Key       string    `json:"key"`
	FirstSeen time.Time `json:"first_seen"`
}

// Intent is the classifier's query_type.
type Intent string

const (
	IntentStoreStatus        Intent = "STORE_STATUS"
	IntentStoreStatusMissing Intent = "STORE_STATUS_MISSING"
	IntentGeneral            Intent = "GENERAL"
	IntentEscalate           Intent = "ESCALATE"
)

// ClassificationResult is the structured outcome of one classifier call.
// Ephemeral, never persisted.
type ClassificationResult struct {
	Intent       Intent  `json:"query_type"`
	CompanyName  string  `json:"company_name,omitempty"`
	CommerceID   string  `json:"commerce_id,omitempty"`
	Confidence   float64 `json:"confidence"`
	ResponseText string  `json:"response_text"`
}

// HasStoreInfo reports whether both entities needed for a store lookup are
// present.
func (r *ClassificationResult) HasStoreInfo() bool {
	return r.CompanyName != "" && r.CommerceID != ""
}

// DeliveryReceipt is returned by the outbound sender on success.
type DeliveryReceipt struct {
	ReceiptID string    `json:"receipt_id"`
	WaID      string    `json:"wa_id"`
	Attempts  int       `json:"attempts"`
	SentAt    time.Time `json:"sent_at"`
}
