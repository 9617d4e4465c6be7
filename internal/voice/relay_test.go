package voice

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appollohealth/clinic-voice-agent/internal/agent"
	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

type sentFrame struct {
	token string
	last  bool
}

type frameRecorder struct {
	frames []sentFrame
}

func (r *frameRecorder) send(token string, last bool) error {
	r.frames = append(r.frames, sentFrame{token: token, last: last})
	return nil
}

func (r *frameRecorder) speech() string {
	var b strings.Builder
	for _, f := range r.frames {
		b.WriteString(f.token)
	}
	return b.String()
}

func newTestRelay(t *testing.T, llm agent.LLMClient) (*Relay, *agent.MemoryCheckpointer) {
	t.Helper()
	logger := logging.New("error")
	tools := agent.NewToolset(directory.NewSeededAppointmentStore(), agent.ToolsetConfig{Timezone: "Asia/Kolkata"}, logger)
	graph := agent.NewGraph(llm, tools, agent.GraphConfig{}, logger)
	checkpoints := agent.NewMemoryCheckpointer()
	relay := NewRelay(
		directory.NewSeededCustomerStore(),
		graph,
		checkpoints,
		RelayConfig{
			WelcomeGreeting: "Welcome to the Appollo Clinic. How can I help you today?",
			Branding:        agent.Branding{Name: "Amelia", Persona: "Helpful and courteous", Tone: "Helpful and Casual"},
		},
		nil,
		logger,
	)
	return relay, checkpoints
}

func TestRespondSeedsStateForKnownCaller(t *testing.T) {
	llm := &stubLLM{
		intents: []string{"appointment_node", "end"},
		chats:   []agent.Message{{Content: "Hi John, how can I help?"}},
	}
	relay, checkpoints := newTestRelay(t, llm)
	sess := session.Session{ID: "sess-1", PhoneNumber: "+14803828571", Channel: ChannelVoice}

	var rec frameRecorder
	require.NoError(t, relay.Respond(context.Background(), sess, "hello", rec.send))

	assert.Equal(t, "Hi John, how can I help?", rec.speech())
	last := rec.frames[len(rec.frames)-1]
	assert.True(t, last.last)
	assert.Empty(t, last.token)

	state, err := checkpoints.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "CUST-1001", state.Customer.ID)
	assert.Equal(t, ChannelVoice, state.Channel)
	assert.Equal(t, agent.NodeAppointment, state.ActiveNode)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, agent.RoleHuman, state.Messages[0].Role)
	assert.Equal(t, "hello", state.Messages[0].Content)
	assert.Equal(t, agent.RoleAssistant, state.Messages[1].Role)
}

func TestRespondUnknownCallerStillRuns(t *testing.T) {
	llm := &stubLLM{
		intents: []string{"appointment_node", "end"},
		chats:   []agent.Message{{Content: "I could not find your record."}},
	}
	relay, checkpoints := newTestRelay(t, llm)
	sess := session.Session{ID: "sess-2", PhoneNumber: "+19990000000", Channel: ChannelVoice}

	var rec frameRecorder
	require.NoError(t, relay.Respond(context.Background(), sess, "hello", rec.send))

	state, err := checkpoints.Get(context.Background(), "sess-2")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Empty(t, state.Customer.ID)
}

func TestRespondResumesFromCheckpoint(t *testing.T) {
	llm := &stubLLM{
		intents: []string{"appointment_node", "end", "appointment_node", "end"},
		chats: []agent.Message{
			{Content: "First reply."},
			{Content: "Second reply."},
		},
	}
	relay, checkpoints := newTestRelay(t, llm)
	sess := session.Session{ID: "sess-3", PhoneNumber: "+14803828571", Channel: ChannelVoice}

	var first frameRecorder
	require.NoError(t, relay.Respond(context.Background(), sess, "turn one", first.send))
	var second frameRecorder
	require.NoError(t, relay.Respond(context.Background(), sess, "turn two", second.send))

	state, err := checkpoints.Get(context.Background(), "sess-3")
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Messages, 4)
	assert.Equal(t, "turn one", state.Messages[0].Content)
	assert.Equal(t, "First reply.", state.Messages[1].Content)
	assert.Equal(t, "turn two", state.Messages[2].Content)
	assert.Equal(t, "Second reply.", state.Messages[3].Content)
}

func TestRespondFailureSkipsCheckpointAndTerminalFrame(t *testing.T) {
	relay, checkpoints := newTestRelay(t, &stubLLM{})
	sess := session.Session{ID: "sess-4", PhoneNumber: "+14803828571", Channel: ChannelVoice}

	var rec frameRecorder
	err := relay.Respond(context.Background(), sess, "hello", rec.send)
	require.Error(t, err)

	assert.Empty(t, rec.frames, "no frames should be sent for a failed turn")
	state, cerr := checkpoints.Get(context.Background(), "sess-4")
	require.NoError(t, cerr)
	assert.Nil(t, state, "failed turns must not be checkpointed")
}
