package agent

import (
	"context"
	"fmt"

	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// GraphConfig controls graph execution.
type GraphConfig struct {
	// StepLimit bounds the number of node executions per turn. The graph must
	// terminate on a clean "no tool calls" response well within this bound.
	StepLimit int
}

const defaultStepLimit = 10

// Graph is the conversation routing graph: intent identification picks the
// responsible agent node, agent nodes invoke the model with their tool subset
// bound, and the tools node executes pending calls before handing control
// back to the node that requested them.
type Graph struct {
	llm       LLMClient
	tools     *Toolset
	stepLimit int
	logger    *logging.Logger
}

// NewGraph wires the routing graph.
func NewGraph(llm LLMClient, tools *Toolset, cfg GraphConfig, logger *logging.Logger) *Graph {
	if logger == nil {
		logger = logging.Default()
	}
	limit := cfg.StepLimit
	if limit <= 0 {
		limit = defaultStepLimit
	}
	return &Graph{
		llm:       llm,
		tools:     tools,
		stepLimit: limit,
		logger:    logger,
	}
}

// intentResponse is the classifier's structured output.
type intentResponse struct {
	ActiveNode string `json:"active_node"`
	Thinking   string `json:"thinking"`
}

// Run executes one conversation turn: nodes run strictly one at a time until
// the classifier decides the caller should speak next. Assistant tokens are
// forwarded through onToken as they stream.
func (g *Graph) Run(ctx context.Context, state *State, onToken TokenFunc) error {
	node := NodeIntentIdentification
	for step := 0; ; step++ {
		if step >= g.stepLimit {
			return fmt.Errorf("agent: graph did not terminate within %d steps", g.stepLimit)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		g.logger.Debug("executing graph node", "node", node, "step", step)

		switch node {
		case NodeIntentIdentification:
			next, err := g.identifyIntent(ctx, state)
			if err != nil {
				return err
			}
			if next == NodeEnd {
				return nil
			}
			node = next

		case NodeAppointment, NodeAuth:
			if err := g.agentTurn(ctx, state, node, onToken); err != nil {
				return err
			}
			if len(state.PendingToolCalls()) > 0 {
				node = NodeTools
			} else {
				node = NodeIntentIdentification
			}

		case NodeTools:
			next, err := g.runTools(ctx, state)
			if err != nil {
				return err
			}
			node = next

		default:
			return fmt.Errorf("agent: graph reached unexpected node %q", node)
		}
	}
}

// identifyIntent classifies which node should handle the conversation next.
// The classifier's output is constrained to the wired node set at this
// boundary: anything else retains the previous active node. It never appends
// messages, and on "end" it leaves active_node untouched so the next turn
// resumes where this one left off.
func (g *Graph) identifyIntent(ctx context.Context, state *State) (Node, error) {
	var resp intentResponse
	if err := g.llm.Classify(ctx, intentPrompt(state), state.Messages, &resp); err != nil {
		return NodeEnd, fmt.Errorf("agent: intent identification: %w", err)
	}

	g.logger.Info("intent identified", "active_node", resp.ActiveNode)
	g.logger.Debug("intent identification thinking", "thinking", resp.Thinking)

	switch next := Node(resp.ActiveNode); {
	case next.RoutableNode():
		state.ActiveNode = next
		return next, nil
	case next == NodeEnd:
		return NodeEnd, nil
	default:
		if resp.ActiveNode != "" {
			g.logger.Warn("classifier returned unwired node, retaining previous", "returned", resp.ActiveNode, "previous", state.ActiveNode)
		}
		if state.ActiveNode.RoutableNode() {
			return state.ActiveNode, nil
		}
		state.ActiveNode = NodeAppointment
		return NodeAppointment, nil
	}
}

// agentTurn invokes the model for an agent node with its role prompt and tool
// subset. The appointment node also binds the authentication tools so the
// model can start the OTP flow itself when the gate redirects.
func (g *Graph) agentTurn(ctx context.Context, state *State, node Node, onToken TokenFunc) error {
	var req ChatRequest
	switch node {
	case NodeAppointment:
		req = ChatRequest{
			System:   appointmentPrompt(state),
			Messages: state.Messages,
			Tools:    append(g.tools.AppointmentToolDefs(), g.tools.AuthToolDefs()...),
		}
	case NodeAuth:
		req = ChatRequest{
			System:   authPrompt(state),
			Messages: state.Messages,
			Tools:    g.tools.AuthToolDefs(),
		}
	default:
		return fmt.Errorf("agent: node %q is not an agent node", node)
	}

	msg, err := g.llm.Chat(ctx, req, onToken)
	if err != nil {
		return fmt.Errorf("agent: %s: %w", node, err)
	}
	msg.Role = RoleAssistant
	state.ActiveNode = node
	state.Append(msg)
	return nil
}

// runTools dispatches the pending tool-call batch sequentially, then routes
// back to whichever agent node set active_node most recently.
func (g *Graph) runTools(ctx context.Context, state *State) (Node, error) {
	calls := state.PendingToolCalls()
	for _, call := range calls {
		if err := g.tools.Dispatch(ctx, state, call); err != nil {
			return NodeEnd, err
		}
	}
	if !state.ActiveNode.RoutableNode() {
		return NodeEnd, fmt.Errorf("agent: tools cannot resume node %q", state.ActiveNode)
	}
	return state.ActiveNode, nil
}
