package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"support-bot/models"
)

// Trigger names a conversation state transition cause.
type Trigger string

const (
	TriggerEscalate     Trigger = "escalate"      // bot -> pending_human
	TriggerAgentMessage Trigger = "agent_message" // any -> human
	TriggerAgentClaim   Trigger = "agent_claim"   // any -> human
	TriggerResolve      Trigger = "resolve"       // human/pending -> bot, authorized
	TriggerTimeout      Trigger = "timeout"       // human/pending -> bot after inactivity
)

var (
	// ErrConflict is returned when the resolving agent does not match the
	// assigned agent. The conversation is left unchanged.
	ErrConflict = errors.New("resolving agent does not match assigned agent")

	ErrUnknownTrigger = errors.New("unknown transition trigger")
)

// TransitionPayload carries optional transition context.
type TransitionPayload struct {
	AgentID string
	Reason  string
}

// ConversationStore persists conversation state. Get returns nil (no error)
// when the conversation does not exist.
type ConversationStore interface {
	Get(ctx context.Context, waID string) (*models.Conversation, error)
	Put(ctx context.Context, conv *models.Conversation) error
	AppendMessage(ctx context.Context, waID string, msg models.ConversationMessage) error
	List(ctx context.Context) ([]models.Conversation, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]models.Conversation, error)
}

// Tracker is the conversation state machine. While a conversation is in
// pending_human or human the dispatcher must not reply autonomously; that
// ownership rule is enforced here, not guessed at call sites.
type Tracker struct {
	store          ConversationStore
	handoffTimeout time.Duration
}

func NewTracker(store ConversationStore, handoffTimeout time.Duration) *Tracker {
	return &Tracker{store: store, handoffTimeout: handoffTimeout}
}

// State returns the conversation, creating it in bot mode on first contact.
// A handed-off conversation whose last transition is older than the handoff
// timeout reverts to bot mode here, so timeouts take effect even between
// sweeper runs.
func (t *Tracker) State(ctx context.Context, waID string) (*models.Conversation, error) {
	conv, err := t.store.Get(ctx, waID)
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", waID, err)
	}

	if conv == nil {
		now := time.Now()
		conv = &models.Conversation{
			WaID:           waID,
			Mode:           models.ModeBot,
			LastTransition: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := t.store.Put(ctx, conv); err != nil {
			return nil, fmt.Errorf("create conversation %s: %w", waID, err)
		}
		slog.Info("Conversation created", "waID", waID)
		return conv, nil
	}

	if conv.Mode != models.ModeBot && t.handoffTimeout > 0 &&
		time.Since(conv.LastTransition) > t.handoffTimeout {
		return t.Transition(ctx, waID, TriggerTimeout, TransitionPayload{Reason: "handoff timeout"})
	}

	return conv, nil
}

// Transition applies a trigger and persists the result. An unauthorized
// resolve fails with ErrConflict and mutates nothing.
func (t *Tracker) Transition(ctx context.Context, waID string, trigger Trigger, payload TransitionPayload) (*models.Conversation, error) {
	conv, err := t.store.Get(ctx, waID)
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", waID, err)
	}
	if conv == nil {
		conv = &models.Conversation{
			WaID:      waID,
			Mode:      models.ModeBot,
			CreatedAt: time.Now(),
		}
	}

	from := conv.Mode
	now := time.Now()

	switch trigger {
	case TriggerEscalate:
		// Already handed off: keep the current owner.
		if conv.Mode != models.ModeBot {
			return conv, nil
		}
		conv.Mode = models.ModePendingHuman
		conv.Reason = payload.Reason

	case TriggerAgentMessage, TriggerAgentClaim:
		conv.Mode = models.ModeHuman
		if payload.AgentID != "" {
			conv.AssignedAgent = payload.AgentID
		}
		conv.Reason = payload.Reason

	case TriggerResolve:
		if conv.AssignedAgent != "" && payload.AgentID != conv.AssignedAgent {
			return nil, ErrConflict
		}
		conv.Mode = models.ModeBot
		conv.AssignedAgent = ""
		conv.Reason = payload.Reason

	case TriggerTimeout:
		conv.Mode = models.ModeBot
		conv.AssignedAgent = ""
		conv.Reason = payload.Reason

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}

	conv.LastTransition = now
	conv.UpdatedAt = now

	if err := t.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation %s: %w", waID, err)
	}

	slog.Info("Conversation transition",
		"waID", waID,
		"trigger", string(trigger),
		"from", string(from),
		"to", string(conv.Mode),
		"agentID", payload.AgentID,
	)

	return conv, nil
}

// AppendMessage records a message in the conversation history. History is
// written in every mode, including while the bot is suppressed.
func (t *Tracker) AppendMessage(ctx context.Context, waID, content string, isFromUser bool) error {
	return t.store.AppendMessage(ctx, waID, models.ConversationMessage{
		Content:    content,
		IsFromUser: isFromUser,
		Timestamp:  time.Now(),
	})
}

// Conversations lists all tracked conversations for the ops surface.
func (t *Tracker) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return t.store.List(ctx)
}

// MongoConversationStore persists conversations in the "conversations"
// collection, keyed by the unique wa_id index.
type MongoConversationStore struct {
	collection *mongo.Collection
}

func NewMongoConversationStore(db *mongo.Database) *MongoConversationStore {
	return &MongoConversationStore{collection: db.Collection("conversations")}
}

func (s *MongoConversationStore) Get(ctx context.Context, waID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.collection.FindOne(ctx, bson.M{"wa_id": waID}).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (s *MongoConversationStore) Put(ctx context.Context, conv *models.Conversation) error {
	filter := bson.M{"wa_id": conv.WaID}
	update := bson.M{
		"$set": bson.M{
			"wa_id":           conv.WaID,
			"mode":            conv.Mode,
			"assigned_agent":  conv.AssignedAgent,
			"reason":          conv.Reason,
			"last_transition": conv.LastTransition,
			"updated_at":      conv.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": conv.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (s *MongoConversationStore) AppendMessage(ctx context.Context, waID string, msg models.ConversationMessage) error {
	filter := bson.M{"wa_id": waID}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	_, err := s.collection.UpdateOne(ctx, filter, update)
	return err
}

func (s *MongoConversationStore) List(ctx context.Context) ([]models.Conversation, error) {
	findOptions := options.Find().SetSort(bson.M{"last_transition": -1})
	cursor, err := s.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *MongoConversationStore) ListStale(ctx context.Context, olderThan time.Time) ([]models.Conversation, error) {
	filter := bson.M{
		"mode":            bson.M{"$ne": models.ModeBot},
		"last_transition": bson.M{"$lt": olderThan},
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// MemoryConversationStore backs the tracker in tests and single-node setups
// without Mongo.
type MemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{conversations: make(map[string]*models.Conversation)}
}

func (s *MemoryConversationStore) Get(_ context.Context, waID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[waID]
	if !ok {
		return nil, nil
	}
	copied := *conv
	copied.Messages = append([]models.ConversationMessage(nil), conv.Messages...)
	return &copied, nil
}

func (s *MemoryConversationStore) Put(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *conv
	if existing, ok := s.conversations[conv.WaID]; ok {
		copied.Messages = existing.Messages
		if copied.CreatedAt.IsZero() {
			copied.CreatedAt = existing.CreatedAt
		}
	}
	s.conversations[conv.WaID] = &copied
	return nil
}

func (s *MemoryConversationStore) AppendMessage(_ context.Context, waID string, msg models.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[waID]
	if !ok {
		return nil
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryConversationStore) List(_ context.Context) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		copied := *conv
		copied.Messages = append([]models.ConversationMessage(nil), conv.Messages...)
		conversations = append(conversations, copied)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastTransition.After(conversations[j].LastTransition)
	})
	return conversations, nil
}

func (s *MemoryConversationStore) ListStale(_ context.Context, olderThan time.Time) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []models.Conversation
	for _, conv := range s.conversations {
		if conv.Mode != models.ModeBot && conv.LastTransition.Before(olderThan) {
			stale = append(stale, *conv)
		}
	}
	return stale, nil
}
