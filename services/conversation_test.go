package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-bot/models"
)

func newTestTracker(t *testing.T, timeout time.Duration) (*Tracker, *MemoryConversationStore) {
	t.Helper()
	store := NewMemoryConversationStore()
	return NewTracker(store, timeout), store
}

func TestStateCreatesConversationInBotMode(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	conv, err := tracker.State(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
	require.Empty(t, conv.AssignedAgent)
	require.False(t, conv.LastTransition.IsZero())

	again, err := tracker.State(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, conv.WaID, again.WaID)
}

func TestEscalateMovesBotToPendingHuman(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	conv, err := tracker.Transition(context.Background(), "55500", TriggerEscalate, TransitionPayload{Reason: "low confidence"})
	require.NoError(t, err)
	require.Equal(t, models.ModePendingHuman, conv.Mode)
	require.Equal(t, "low confidence", conv.Reason)
}

func TestEscalateDoesNotDemoteHuman(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	_, err := tracker.Transition(context.Background(), "55500", TriggerAgentClaim, TransitionPayload{AgentID: "agent-1"})
	require.NoError(t, err)

	conv, err := tracker.Transition(context.Background(), "55500", TriggerEscalate, TransitionPayload{Reason: "noise"})
	require.NoError(t, err)
	require.Equal(t, models.ModeHuman, conv.Mode)
	require.Equal(t, "agent-1", conv.AssignedAgent)
}

func TestAgentMessageForcesHumanFromAnyMode(t *testing.T) {
	for _, setup := range []Trigger{"", TriggerEscalate} {
		tracker, _ := newTestTracker(t, 24*time.Hour)

		if setup != "" {
			_, err := tracker.Transition(context.Background(), "55500", setup, TransitionPayload{})
			require.NoError(t, err)
		}

		conv, err := tracker.Transition(context.Background(), "55500", TriggerAgentMessage, TransitionPayload{AgentID: "agent-1"})
		require.NoError(t, err)
		require.Equal(t, models.ModeHuman, conv.Mode)
		require.Equal(t, "agent-1", conv.AssignedAgent)
	}
}

func TestResolveByAssignedAgent(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	_, err := tracker.Transition(context.Background(), "55500", TriggerAgentClaim, TransitionPayload{AgentID: "agent-1"})
	require.NoError(t, err)

	conv, err := tracker.Transition(context.Background(), "55500", TriggerResolve, TransitionPayload{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
	require.Empty(t, conv.AssignedAgent)
}

func TestResolveByWrongAgentFailsWithConflict(t *testing.T) {
	tracker, store := newTestTracker(t, 24*time.Hour)

	_, err := tracker.Transition(context.Background(), "55500", TriggerAgentClaim, TransitionPayload{AgentID: "agent-1"})
	require.NoError(t, err)

	_, err = tracker.Transition(context.Background(), "55500", TriggerResolve, TransitionPayload{AgentID: "agent-2"})
	require.ErrorIs(t, err, ErrConflict)

	// State is unchanged after the rejected resolve.
	conv, err := store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeHuman, conv.Mode)
	require.Equal(t, "agent-1", conv.AssignedAgent)
}

func TestResolveWithoutAssignmentAllowed(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	_, err := tracker.Transition(context.Background(), "55500", TriggerEscalate, TransitionPayload{})
	require.NoError(t, err)

	conv, err := tracker.Transition(context.Background(), "55500", TriggerResolve, TransitionPayload{AgentID: "agent-9"})
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
}

func TestHandoffTimeoutRevertsOnRead(t *testing.T) {
	store := NewMemoryConversationStore()
	tracker := NewTracker(store, time.Hour)

	stale := &models.Conversation{
		WaID:           "55500",
		Mode:           models.ModeHuman,
		AssignedAgent:  "agent-1",
		LastTransition: time.Now().Add(-2 * time.Hour),
		CreatedAt:      time.Now().Add(-3 * time.Hour),
	}
	require.NoError(t, store.Put(context.Background(), stale))

	conv, err := tracker.State(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
	require.Empty(t, conv.AssignedAgent)
	require.Equal(t, "handoff timeout", conv.Reason)
}

func TestHandoffWithinTimeoutIsKept(t *testing.T) {
	store := NewMemoryConversationStore()
	tracker := NewTracker(store, 24*time.Hour)

	recent := &models.Conversation{
		WaID:           "55500",
		Mode:           models.ModePendingHuman,
		LastTransition: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Put(context.Background(), recent))

	conv, err := tracker.State(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModePendingHuman, conv.Mode)
}

func TestUnknownTriggerRejected(t *testing.T) {
	tracker, _ := newTestTracker(t, 24*time.Hour)

	_, err := tracker.Transition(context.Background(), "55500", Trigger("bogus"), TransitionPayload{})
	require.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestAppendMessageKeepsHistoryOrder(t *testing.T) {
	tracker, store := newTestTracker(t, 24*time.Hour)

	_, err := tracker.State(context.Background(), "55500")
	require.NoError(t, err)

	require.NoError(t, tracker.AppendMessage(context.Background(), "55500", "hola", true))
	require.NoError(t, tracker.AppendMessage(context.Background(), "55500", "¡Hola! ¿En qué puedo ayudarte?", false))

	conv, err := store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	require.True(t, conv.Messages[0].IsFromUser)
	require.False(t, conv.Messages[1].IsFromUser)
}

func TestSweepHandoffsRevertsStaleOnly(t *testing.T) {
	store := NewMemoryConversationStore()
	tracker := NewTracker(store, time.Hour)

	require.NoError(t, store.Put(context.Background(), &models.Conversation{
		WaID:           "stale",
		Mode:           models.ModePendingHuman,
		LastTransition: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, store.Put(context.Background(), &models.Conversation{
		WaID:           "fresh",
		Mode:           models.ModeHuman,
		AssignedAgent:  "agent-1",
		LastTransition: time.Now(),
	}))

	sweepHandoffs(context.Background(), tracker, time.Hour)

	staleConv, err := store.Get(context.Background(), "stale")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, staleConv.Mode)

	freshConv, err := store.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, models.ModeHuman, freshConv.Mode)
}
