package agent

import (
	"context"
	"encoding/json"
)

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        ToolName
	Description string
	Parameters  json.RawMessage // JSON Schema for the arguments object
}

// ChatRequest is a single model invocation with a node-specific system prompt
// and tool subset.
type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// TokenFunc receives assistant text incrementally as the model produces it.
type TokenFunc func(token string)

// LLMClient is the opaque language-model capability: given a system prompt,
// history and bound tools it produces either a final answer or tool calls.
type LLMClient interface {
	// Chat invokes the model. onToken may be nil; when set it is called for
	// each streamed content token before the full message is returned.
	Chat(ctx context.Context, req ChatRequest, onToken TokenFunc) (Message, error)

	// Classify invokes the model with a structured-output contract and
	// unmarshals the JSON reply into out.
	Classify(ctx context.Context, system string, history []Message, out any) error
}
