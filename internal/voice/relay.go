package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appollohealth/clinic-voice-agent/internal/agent"
	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/internal/observability/metrics"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// SendFunc delivers one chunk of assistant speech to the caller. The call
// with last=true closes the turn; its token may be empty.
type SendFunc func(token string, last bool) error

// RelayConfig carries the session-seeding defaults for new conversations.
type RelayConfig struct {
	WelcomeGreeting string
	Branding        agent.Branding
}

// Relay runs conversation turns for relay sessions: it loads or seeds the
// per-session state, threads the caller's utterance through the graph, and
// checkpoints the result so the next turn resumes where this one ended.
type Relay struct {
	customers   directory.CustomerStore
	graph       *agent.Graph
	checkpoints agent.Checkpointer
	cfg         RelayConfig
	metrics     *metrics.VoiceMetrics
	logger      *logging.Logger
}

// NewRelay wires the turn runner.
func NewRelay(customers directory.CustomerStore, graph *agent.Graph, checkpoints agent.Checkpointer, cfg RelayConfig, m *metrics.VoiceMetrics, logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{
		customers:   customers,
		graph:       graph,
		checkpoints: checkpoints,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// Respond executes one conversation turn for the session. Assistant tokens
// stream through send as the model produces them; the terminal send carries
// last=true only after the state has been checkpointed. On error nothing is
// checkpointed and no terminal frame is sent, so the caller decides how to
// recover.
func (r *Relay) Respond(ctx context.Context, sess session.Session, utterance string, send SendFunc) error {
	start := time.Now()

	state, err := r.loadOrSeedState(ctx, sess)
	if err != nil {
		r.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return err
	}
	state.Append(agent.Message{Role: agent.RoleHuman, Content: utterance})

	var sendErr error
	err = r.graph.Run(ctx, state, func(token string) {
		if sendErr != nil {
			return
		}
		sendErr = send(token, false)
	})
	if err == nil {
		err = sendErr
	}
	if err != nil {
		r.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return fmt.Errorf("voice: turn for session %s: %w", sess.ID, err)
	}

	if err := r.checkpoints.Put(ctx, sess.ID, state); err != nil {
		r.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return fmt.Errorf("voice: checkpoint session %s: %w", sess.ID, err)
	}
	if err := send("", true); err != nil {
		r.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return fmt.Errorf("voice: close turn for session %s: %w", sess.ID, err)
	}

	r.metrics.ObserveTurn("ok", time.Since(start).Seconds())
	r.logger.Info("conversation turn completed",
		"session_id", sess.ID,
		"active_node", state.ActiveNode,
		"messages", len(state.Messages),
		"duration", time.Since(start))
	return nil
}

// loadOrSeedState fetches the session's checkpoint, or seeds a fresh state on
// the first turn. Unknown callers get an empty customer record; the tools
// narrate the missing identity instead of the transport rejecting the call.
func (r *Relay) loadOrSeedState(ctx context.Context, sess session.Session) (*agent.State, error) {
	state, err := r.checkpoints.Get(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("voice: load checkpoint for session %s: %w", sess.ID, err)
	}
	if state != nil {
		return state, nil
	}

	customer, err := r.customers.FindByPhone(ctx, sess.PhoneNumber)
	switch {
	case errors.Is(err, directory.ErrCustomerNotFound):
		r.logger.Warn("caller not in customer directory", "session_id", sess.ID, "phone", sess.PhoneNumber)
	case err != nil:
		return nil, fmt.Errorf("voice: look up caller: %w", err)
	}

	return &agent.State{
		Channel:        sess.Channel,
		WelcomeMessage: r.cfg.WelcomeGreeting,
		Customer:       customer,
		Branding:       r.cfg.Branding,
	}, nil
}
