package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appollohealth/clinic-voice-agent/internal/agent"
	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// stubLLM replays scripted classifier verdicts and chat replies in order.
type stubLLM struct {
	intents []string
	chats   []agent.Message
}

func (s *stubLLM) Classify(_ context.Context, _ string, _ []agent.Message, out any) error {
	if len(s.intents) == 0 {
		return errors.New("stub: no scripted intents left")
	}
	next := s.intents[0]
	s.intents = s.intents[1:]
	raw, _ := json.Marshal(map[string]string{"active_node": next})
	return json.Unmarshal(raw, out)
}

func (s *stubLLM) Chat(_ context.Context, _ agent.ChatRequest, onToken agent.TokenFunc) (agent.Message, error) {
	if len(s.chats) == 0 {
		return agent.Message{}, errors.New("stub: no scripted chats left")
	}
	msg := s.chats[0]
	s.chats = s.chats[1:]
	if onToken != nil && msg.Content != "" {
		for _, word := range strings.SplitAfter(msg.Content, " ") {
			onToken(word)
		}
	}
	return msg, nil
}

func newTestHandler(t *testing.T, llm agent.LLMClient) (*Handler, session.Store) {
	t.Helper()
	logger := logging.New("error")
	sessions := session.NewMemoryStore()
	tools := agent.NewToolset(directory.NewSeededAppointmentStore(), agent.ToolsetConfig{Timezone: "Asia/Kolkata"}, logger)
	graph := agent.NewGraph(llm, tools, agent.GraphConfig{}, logger)
	relay := NewRelay(
		directory.NewSeededCustomerStore(),
		graph,
		agent.NewMemoryCheckpointer(),
		RelayConfig{
			WelcomeGreeting: "Welcome to the Appollo Clinic. How can I help you today?",
			Branding:        agent.Branding{Name: "Amelia", Persona: "Helpful and courteous", Tone: "Helpful and Casual"},
		},
		nil,
		logger,
	)
	h := NewHandler(sessions, relay, HandlerConfig{
		WebSocketURL:    "wss://agent.example.com/voice/ws",
		WelcomeGreeting: "Welcome to the Appollo Clinic. How can I help you today?",
	}, nil, logger)
	return h, sessions
}

func TestInboundCall(t *testing.T) {
	h, sessions := newTestHandler(t, &stubLLM{})

	form := url.Values{
		"From":    {"+14803828571"},
		"To":      {"+15550001111"},
		"CallSid": {"CA0001"},
	}
	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.InboundCall(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<ConversationRelay")
	assert.Contains(t, body, "wss://agent.example.com/voice/ws?session_id=")
	assert.Contains(t, body, `welcomeGreeting="Welcome to the Appollo Clinic. How can I help you today?"`)

	sess, err := sessions.GetByPhoneAndChannel(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)
	assert.Contains(t, body, "session_id="+sess.ID)
}

func TestInboundCallMissingFrom(t *testing.T) {
	h, _ := newTestHandler(t, &stubLLM{})

	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader("To=%2B15550001111"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.InboundCall(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusCallbackCompletedDeletesSession(t *testing.T) {
	h, sessions := newTestHandler(t, &stubLLM{})
	sess, err := sessions.Create(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)

	form := url.Values{
		"CallSid":    {"CA0001"},
		"CallStatus": {"completed"},
		"From":       {"+14803828571"},
	}
	req := httptest.NewRequest(http.MethodPost, "/voice/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.StatusCallback(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = sessions.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStatusCallbackRingingKeepsSession(t *testing.T) {
	h, sessions := newTestHandler(t, &stubLLM{})
	sess, err := sessions.Create(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)

	form := url.Values{
		"CallSid":    {"CA0001"},
		"CallStatus": {"ringing"},
		"From":       {"+14803828571"},
	}
	req := httptest.NewRequest(http.MethodPost, "/voice/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.StatusCallback(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = sessions.Get(context.Background(), sess.ID)
	assert.NoError(t, err)
}

func TestHandleWebSocketRejectsUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t, &stubLLM{})

	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{name: "missing session_id", target: "/voice/ws", wantCode: http.StatusBadRequest},
		{name: "unknown session_id", target: "/voice/ws?session_id=nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

// dialRelay upgrades a test websocket against the handler for an existing
// session.
func dialRelay(t *testing.T, h *Handler, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readTurn collects text frames until the terminal one, returning the
// concatenated speech.
func readTurn(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var reply strings.Builder
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg TextMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, MessageTypeText, msg.Type)
		reply.WriteString(msg.Token)
		if msg.Last {
			return reply.String()
		}
	}
}

func TestRelaySocketTurn(t *testing.T) {
	llm := &stubLLM{
		intents: []string{"appointment_node", "end"},
		chats:   []agent.Message{{Role: agent.RoleAssistant, Content: "Sure, I can help with your appointments."}},
	}
	h, sessions := newTestHandler(t, llm)
	sess, err := sessions.Create(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)

	conn := dialRelay(t, h, sess.ID)

	require.NoError(t, conn.WriteJSON(InboundMessage{
		Type:      MessageTypeSetup,
		CallSID:   "CA0001",
		From:      "+14803828571",
		Direction: "inbound",
	}))
	require.NoError(t, conn.WriteJSON(InboundMessage{
		Type:        MessageTypePrompt,
		VoicePrompt: "I need help with my appointments",
		Last:        true,
	}))

	assert.Equal(t, "Sure, I can help with your appointments.", readTurn(t, conn))
}

func TestRelaySocketTurnFailureSpeaksFallback(t *testing.T) {
	h, sessions := newTestHandler(t, &stubLLM{})
	sess, err := sessions.Create(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)

	conn := dialRelay(t, h, sess.ID)
	require.NoError(t, conn.WriteJSON(InboundMessage{
		Type:        MessageTypePrompt,
		VoicePrompt: "hello",
		Last:        true,
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg TextMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, turnErrorReply, msg.Token)
	assert.True(t, msg.Last)
}

func TestRelaySocketCloseDeletesSession(t *testing.T) {
	h, sessions := newTestHandler(t, &stubLLM{})
	sess, err := sessions.Create(context.Background(), "+14803828571", ChannelVoice)
	require.NoError(t, err)

	conn := dialRelay(t, h, sess.ID)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	require.Eventually(t, func() bool {
		_, err := sessions.Get(context.Background(), sess.ID)
		return errors.Is(err, session.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &stubLLM{})
	rec := httptest.NewRecorder()

	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
