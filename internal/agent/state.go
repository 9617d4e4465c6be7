package agent

import (
	"encoding/json"

	"github.com/appollohealth/clinic-voice-agent/internal/directory"
)

// Node identifies a vertex in the conversation graph. The set is closed: the
// intent classifier's output is constrained to these values at the boundary.
type Node string

const (
	NodeIntentIdentification Node = "intent_identification"
	NodeAppointment          Node = "appointment_node"
	NodeAuth                 Node = "auth_node"
	NodeTools                Node = "tools"
	NodeEnd                  Node = "end"
)

// RoutableNode reports whether the intent classifier may hand the
// conversation to this node.
func (n Node) RoutableNode() bool {
	return n == NodeAppointment || n == NodeAuth
}

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a pending tool invocation on an assistant message.
type ToolCall struct {
	ID   string          `json:"id"`
	Name ToolName        `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Message is one entry in the conversation history.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
	ToolName   ToolName   `json:"tool_name,omitempty"`    // tool messages only
}

// Branding is the persona configuration injected at session start.
type Branding struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
	Tone    string `json:"tone"`
}

// AuthState tracks the OTP authentication lifecycle for the conversation.
type AuthState struct {
	IsAuthorized bool `json:"is_authorized"`
	OTPSent      bool `json:"otp_sent"`
}

// State is the mutable conversation record threaded through every graph node.
// Messages are append-only; Customer and Branding never change after the
// state is seeded.
type State struct {
	ActiveNode     Node               `json:"active_node"`
	Messages       []Message          `json:"messages"`
	Channel        string             `json:"conversation_channel"`
	WelcomeMessage string             `json:"welcome_message"`
	Customer       directory.Customer `json:"customer"`
	Branding       Branding           `json:"agent_branding"`
	Auth           AuthState          `json:"authentication"`
}

// Append adds messages to the history.
func (s *State) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// LastMessage returns the most recent message, or nil when the history is empty.
func (s *State) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// PendingToolCalls returns the outstanding tool-call batch, if any. At most
// one batch exists at a time: only the last assistant message may carry calls.
func (s *State) PendingToolCalls() []ToolCall {
	last := s.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return nil
	}
	return last.ToolCalls
}

// Clone returns a deep copy suitable for checkpointing.
func (s *State) Clone() *State {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	for i, m := range cp.Messages {
		if len(m.ToolCalls) > 0 {
			calls := make([]ToolCall, len(m.ToolCalls))
			copy(calls, m.ToolCalls)
			cp.Messages[i].ToolCalls = calls
		}
	}
	return &cp
}
