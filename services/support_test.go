package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-bot/models"
)

type sentMessage struct {
	waID string
	text string
}

type mockSender struct {
	sent []sentMessage
	err  error
}

func (m *mockSender) Send(_ context.Context, waID, text string) (*models.DeliveryReceipt, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, sentMessage{waID: waID, text: text})
	return &models.DeliveryReceipt{ReceiptID: "r-1", WaID: waID, Attempts: 1, SentAt: time.Now()}, nil
}

type supportFixture struct {
	svc        *SupportService
	sender     *mockSender
	classifier *mockClassifier
	store      *MemoryConversationStore
	dedup      *MemoryDedupStore
}

func newSupportFixture(classifier *mockClassifier, stores StoreStatusChecker) *supportFixture {
	store := NewMemoryConversationStore()
	tracker := NewTracker(store, 24*time.Hour)
	dedup := NewMemoryDedupStore(60*time.Second, 5000)
	dispatcher := NewDispatcher(classifier, stores, tracker, "", 0.7)
	sender := &mockSender{}
	return &supportFixture{
		svc:        NewSupportService(dedup, tracker, dispatcher, sender, nil),
		sender:     sender,
		classifier: classifier,
		store:      store,
		dedup:      dedup,
	}
}

func generalClassifier(responseText string) *mockClassifier {
	return &mockClassifier{result: &models.ClassificationResult{
		Intent:       models.IntentGeneral,
		Confidence:   0.9,
		ResponseText: responseText,
	}}
}

func userMessage(waID, messageID, text string) models.InboundMessage {
	return models.InboundMessage{WaID: waID, MessageID: messageID, Text: text, ReceivedAt: time.Now()}
}

func TestHandleInboundRepliesOnce(t *testing.T) {
	f := newSupportFixture(generalClassifier("Claro, te ayudo con eso."), &mockStoreStatus{})

	result := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "no puedo ingresar pedidos"))

	require.False(t, result.Duplicate)
	require.Equal(t, "Claro, te ayudo con eso.", result.Reply)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, "55500", f.sender.sent[0].waID)

	// Both sides of the exchange land in history.
	conv, err := f.store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	require.True(t, conv.Messages[0].IsFromUser)
	require.False(t, conv.Messages[1].IsFromUser)
}

func TestHandleInboundDuplicateWamIDSendsOnce(t *testing.T) {
	f := newSupportFixture(generalClassifier("Respuesta."), &mockStoreStatus{})

	first := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "hola?"))
	second := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "hola?"))

	require.False(t, first.Duplicate)
	require.True(t, second.Duplicate)
	require.Equal(t, "duplicate, ignored", second.Info)
	require.Empty(t, second.Reply)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, 1, f.classifier.callCount)
}

func TestHandleInboundGreetingSkipsClassifier(t *testing.T) {
	f := newSupportFixture(&mockClassifier{}, &mockStoreStatus{})

	result := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "Hola"))

	require.Contains(t, GreetingMessages, result.Reply)
	require.False(t, result.Handoff)
	require.Zero(t, f.classifier.callCount)
	require.Len(t, f.sender.sent, 1)

	conv, err := f.store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
}

func TestHandleInboundAgentMessageForcesHumanAndSuppresses(t *testing.T) {
	f := newSupportFixture(&mockClassifier{}, &mockStoreStatus{})

	agentResult := f.svc.HandleInbound(context.Background(), models.InboundMessage{
		WaID:       "55500",
		Text:       "Hola, soy Ana del equipo de soporte.",
		ReceivedAt: time.Now(),
		FromAgent:  true,
		AgentID:    "agent-7",
	})

	require.Equal(t, "agent message recorded", agentResult.Info)
	require.True(t, agentResult.Handoff)
	require.Empty(t, f.sender.sent)

	// Customer follow-up is recorded but never answered by the bot.
	followUp := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-2", "gracias Ana"))

	require.Empty(t, followUp.Reply)
	require.True(t, followUp.Handoff)
	require.Zero(t, f.classifier.callCount)
	require.Empty(t, f.sender.sent)

	conv, err := f.store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeHuman, conv.Mode)
	require.Equal(t, "agent-7", conv.AssignedAgent)
	require.Len(t, conv.Messages, 2)
}

func TestHandleInboundEscalationAcknowledges(t *testing.T) {
	f := newSupportFixture(&mockClassifier{err: errors.New("classifier unavailable")}, &mockStoreStatus{})

	result := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "algo se rompió"))

	require.True(t, result.Handoff)
	require.Equal(t, HandoffAckMsg, result.Reply)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, HandoffAckMsg, f.sender.sent[0].text)

	conv, err := f.store.Get(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModePendingHuman, conv.Mode)
}

func TestHandleInboundDeliveryFailureDoesNotError(t *testing.T) {
	f := newSupportFixture(generalClassifier("Respuesta."), &mockStoreStatus{})
	f.sender.err = errors.New("provider down")

	result := f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "consulta"))

	// The pipeline reports the reply it computed even when delivery fails.
	require.Equal(t, "Respuesta.", result.Reply)
	require.Empty(t, f.sender.sent)
}

func TestHandleTicketReturnsReplyWithoutSending(t *testing.T) {
	f := newSupportFixture(generalClassifier("Revisa la sincronización de la app."), &mockStoreStatus{})

	result := f.svc.HandleTicket(context.Background(), "1017", "App desincronizada", "No veo los pedidos nuevos")

	require.Equal(t, "Revisa la sincronización de la app.", result.Reply)
	require.False(t, result.Duplicate)
	require.Empty(t, f.sender.sent)

	conv, err := f.store.Get(context.Background(), "zoho:1017")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
}

func TestHandleTicketDuplicateIgnored(t *testing.T) {
	f := newSupportFixture(generalClassifier("Respuesta."), &mockStoreStatus{})

	first := f.svc.HandleTicket(context.Background(), "1017", "Asunto", "Descripción")
	second := f.svc.HandleTicket(context.Background(), "1017", "Asunto", "Descripción")

	require.False(t, first.Duplicate)
	require.True(t, second.Duplicate)
	require.Equal(t, 1, f.classifier.callCount)
}

func TestSendAgentMessageTakesOverAndDelivers(t *testing.T) {
	f := newSupportFixture(&mockClassifier{}, &mockStoreStatus{})

	err := f.svc.SendAgentMessage(context.Background(), "55500", "agent-7", "Estoy revisando tu caso.")
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, "Estoy revisando tu caso.", f.sender.sent[0].text)

	conv, getErr := f.store.Get(context.Background(), "55500")
	require.NoError(t, getErr)
	require.Equal(t, models.ModeHuman, conv.Mode)
	require.Equal(t, "agent-7", conv.AssignedAgent)
}

func TestClaimThenResolveRoundTrip(t *testing.T) {
	f := newSupportFixture(&mockClassifier{}, &mockStoreStatus{})

	conv, err := f.svc.Claim(context.Background(), "55500", "agent-7")
	require.NoError(t, err)
	require.Equal(t, models.ModeHuman, conv.Mode)

	_, err = f.svc.Resolve(context.Background(), "55500", "agent-9")
	require.ErrorIs(t, err, ErrConflict)

	conv, err = f.svc.Resolve(context.Background(), "55500", "agent-7")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
	require.Empty(t, conv.AssignedAgent)
}

func TestResetConversationForcesBotMode(t *testing.T) {
	f := newSupportFixture(&mockClassifier{}, &mockStoreStatus{})

	_, err := f.svc.Claim(context.Background(), "55500", "agent-7")
	require.NoError(t, err)

	conv, err := f.svc.ResetConversation(context.Background(), "55500")
	require.NoError(t, err)
	require.Equal(t, models.ModeBot, conv.Mode)
	require.Empty(t, conv.AssignedAgent)
}

func TestHandoffBroadcastFiresOnlyOnEscalation(t *testing.T) {
	classifier := &mockClassifier{err: errors.New("classifier unavailable")}
	store := NewMemoryConversationStore()
	tracker := NewTracker(store, 24*time.Hour)
	dispatcher := NewDispatcher(classifier, &mockStoreStatus{}, tracker, "", 0.7)
	sender := &mockSender{}

	// No drain goroutine: queued events stay in the channel for inspection.
	ws := &WebSocketManager{
		connections: make(map[string]*WebSocketConnection),
		broadcast:   make(chan BroadcastMessage, 100),
	}
	svc := NewSupportService(NewMemoryDedupStore(time.Minute, 100), tracker, dispatcher, sender, ws)

	first := svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "algo se rompió"))
	require.True(t, first.Handoff)

	// Follow-ups while handed off must not re-announce the handoff.
	second := svc.HandleInbound(context.Background(), userMessage("55500", "wam-2", "sigo esperando"))
	require.True(t, second.Handoff)
	require.Empty(t, second.Reply)

	counts := map[string]int{}
	for len(ws.broadcast) > 0 {
		msg := <-ws.broadcast
		counts[msg.Type]++
	}
	require.Equal(t, 1, counts["handoff_requested"])
	require.Equal(t, 3, counts["new_message"])
}

func TestDedupSnapshotAndClearThroughService(t *testing.T) {
	f := newSupportFixture(generalClassifier("Respuesta."), &mockStoreStatus{})

	f.svc.HandleInbound(context.Background(), userMessage("55500", "wam-1", "consulta"))
	require.NotEmpty(t, f.svc.DedupSnapshot())

	f.svc.ClearDedup()
	require.Empty(t, f.svc.DedupSnapshot())
}
