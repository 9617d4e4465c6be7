package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// OpenAIConfig describes how to reach the chat-completion provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// OpenAIClient implements LLMClient on the OpenAI chat-completions API with
// tool calling and token streaming.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	maxRetries int
	timeout    time.Duration
	logger     *logging.Logger
}

// NewOpenAIClient validates the configuration and returns a ready client.
func NewOpenAIClient(cfg OpenAIConfig, logger *logging.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent: openai api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("agent: openai model required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxRetries: retries,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Chat streams a completion with the node's tools bound. Retries stop as soon
// as any token has been forwarded: replaying partial speech to the caller is
// worse than failing the turn.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest, onToken TokenFunc) (Message, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying llm call", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return Message{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
		msg, emitted, err := c.chatOnce(ctx, req, onToken)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if emitted {
			break
		}
	}
	return Message{}, fmt.Errorf("agent: llm chat failed: %w", lastErr)
}

func (c *OpenAIClient) chatOnce(ctx context.Context, req ChatRequest, onToken TokenFunc) (Message, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    toWireMessages(req.System, req.Messages),
		Tools:       toWireTools(req.Tools),
	})
	if err != nil {
		return Message{}, false, err
	}
	defer stream.Close()

	var (
		content string
		emitted bool
		pending []openai.ToolCall
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Message{}, emitted, err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			content += delta.Content
			if onToken != nil {
				onToken(delta.Content)
				emitted = true
			}
		}
		pending = accumulateToolCalls(pending, delta.ToolCalls)
	}

	msg := Message{Role: RoleAssistant, Content: content}
	for _, tc := range pending {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: ToolName(tc.Function.Name),
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}
	return msg, emitted, nil
}

// Classify requests a JSON object reply and unmarshals it into out. No tools,
// no streaming: classification output never reaches the caller directly.
func (c *OpenAIClient) Classify(ctx context.Context, system string, history []Message, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying llm classification", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
		if err := c.classifyOnce(ctx, system, history, out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("agent: llm classify failed: %w", lastErr)
}

func (c *OpenAIClient) classifyOnce(ctx context.Context, system string, history []Message, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    toWireMessages(system, history),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("agent: empty classification response")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("agent: decode classification: %w", err)
	}
	return nil
}

func toWireMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	wire := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		wire = append(wire, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range messages {
		switch m.Role {
		case RoleHuman:
			wire = append(wire, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case RoleAssistant:
			out := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, tc := range m.ToolCalls {
				args := string(tc.Args)
				if args == "" {
					args = "{}"
				}
				out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      string(tc.Name),
						Arguments: args,
					},
				})
			}
			wire = append(wire, out)
		case RoleTool:
			wire = append(wire, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       string(m.ToolName),
				ToolCallID: m.ToolCallID,
			})
		case RoleSystem:
			wire = append(wire, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.Content,
			})
		}
	}
	return wire
}

func toWireTools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	wire := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		wire = append(wire, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(t.Name),
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return wire
}

// accumulateToolCalls merges streamed tool-call deltas: the first delta for an
// index carries the id and name, later deltas append argument fragments.
func accumulateToolCalls(acc []openai.ToolCall, deltas []openai.ToolCall) []openai.ToolCall {
	for _, d := range deltas {
		idx := len(acc)
		if d.Index != nil {
			idx = *d.Index
		}
		for idx >= len(acc) {
			acc = append(acc, openai.ToolCall{})
		}
		if d.ID != "" {
			acc[idx].ID = d.ID
		}
		if d.Function.Name != "" {
			acc[idx].Function.Name = d.Function.Name
		}
		acc[idx].Function.Arguments += d.Function.Arguments
	}
	return acc
}
