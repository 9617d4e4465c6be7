package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/appollohealth/clinic-voice-agent/internal/observability/metrics"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

const (
	// ChannelVoice is the conversation channel for telephone calls.
	ChannelVoice = "voice"

	turnErrorReply = "I'm sorry, something went wrong on my end. Could you say that again?"

	writeTimeout = 10 * time.Second
)

// HandlerConfig carries the webhook-facing settings.
type HandlerConfig struct {
	// WebSocketURL is the public wss:// endpoint Twilio connects back to.
	WebSocketURL    string
	WelcomeGreeting string
	// Voice optionally selects the TTS voice in the TwiML handoff.
	Voice string
}

// Handler terminates the Twilio side of a call: the inbound-call webhook, the
// status callback, and the ConversationRelay websocket.
type Handler struct {
	sessions session.Store
	relay    *Relay
	cfg      HandlerConfig
	metrics  *metrics.VoiceMetrics
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires the telephony handler.
func NewHandler(sessions session.Store, relay *Relay, cfg HandlerConfig, m *metrics.VoiceMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions: sessions,
		relay:    relay,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Twilio's relay does not send an Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// InboundCall handles Twilio's inbound-call webhook. It registers a session
// for the caller and answers with TwiML that connects the call to the relay
// websocket.
func (h *Handler) InboundCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.metrics.ObserveInboundCall("bad_request")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	if from == "" {
		h.metrics.ObserveInboundCall("bad_request")
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	sess, err := h.sessions.Create(r.Context(), from, ChannelVoice)
	if err != nil {
		h.metrics.ObserveInboundCall("error")
		h.logger.Error("failed to create session", "error", err, "from", from)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	twiml, err := RenderConnectTwiML(h.cfg.WebSocketURL+"?session_id="+sess.ID, h.cfg.WelcomeGreeting, h.cfg.Voice)
	if err != nil {
		h.metrics.ObserveInboundCall("error")
		h.logger.Error("failed to render twiml", "error", err, "session_id", sess.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveInboundCall("accepted")
	h.logger.Info("inbound call accepted",
		"session_id", sess.ID,
		"from", from,
		"call_sid", r.PostFormValue("CallSid"))

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twiml))
}

// StatusCallback handles Twilio's call-status webhook. A completed call tears
// down the caller's session; everything else is just logged.
func (h *Handler) StatusCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	cb := StatusCallback{
		AccountSID:   r.PostFormValue("AccountSid"),
		CallSID:      r.PostFormValue("CallSid"),
		CallStatus:   r.PostFormValue("CallStatus"),
		From:         r.PostFormValue("From"),
		To:           r.PostFormValue("To"),
		Direction:    r.PostFormValue("Direction"),
		CallDuration: r.PostFormValue("CallDuration"),
	}
	h.logger.Info("call status callback",
		"call_sid", cb.CallSID,
		"status", cb.CallStatus,
		"from", cb.From,
		"duration", cb.CallDuration)

	if cb.CallStatus == "completed" && cb.From != "" {
		sess, err := h.sessions.GetByPhoneAndChannel(r.Context(), cb.From, ChannelVoice)
		switch {
		case errors.Is(err, session.ErrNotFound):
			// Already cleaned up when the socket closed.
		case err != nil:
			h.logger.Error("failed to look up session for completed call", "error", err, "from", cb.From)
		default:
			if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
				h.logger.Error("failed to delete session", "error", err, "session_id", sess.ID)
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocket serves the ConversationRelay socket for one call. The
// session must exist before the upgrade; Twilio gets a plain HTTP error
// otherwise.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Get(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "session_id", sess.ID)
		return
	}
	defer conn.Close()

	h.logger.Info("relay socket connected", "session_id", sess.ID, "phone", sess.PhoneNumber)
	h.serveRelay(r.Context(), conn, sess)
}

// serveRelay runs the relay frame loop until the socket closes. Frames are
// handled strictly in order; a turn in flight is cancelled when the caller
// hangs up because the context dies with the loop.
func (h *Handler) serveRelay(ctx context.Context, conn *websocket.Conn, sess session.Session) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if err := h.sessions.Delete(context.WithoutCancel(ctx), sess.ID); err != nil {
			h.logger.Error("failed to delete session", "error", err, "session_id", sess.ID)
		}
	}()

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("relay socket closed unexpectedly", "error", err, "session_id", sess.ID)
			} else {
				h.logger.Info("relay socket closed", "session_id", sess.ID)
			}
			return
		}

		switch msg.Type {
		case MessageTypeSetup:
			h.logger.Info("relay setup received",
				"session_id", sess.ID,
				"call_sid", msg.CallSID,
				"from", msg.From,
				"direction", msg.Direction)

		case MessageTypePrompt:
			h.runTurn(ctx, conn, sess, msg.VoicePrompt)

		case MessageTypeDTMF:
			h.logger.Info("dtmf received", "session_id", sess.ID, "digit", msg.Digit)

		case MessageTypeInterrupt:
			h.logger.Info("caller interrupted playback",
				"session_id", sess.ID,
				"utterance", msg.UtteranceUntilInterrupt)

		case MessageTypeError:
			h.logger.Error("relay reported error, ending session", "session_id", sess.ID, "description", msg.Description)
			return

		case MessageTypeEnd:
			h.logger.Info("relay session ended", "session_id", sess.ID, "handoff", msg.HandoffData)
			return

		default:
			h.logger.Warn("unhandled relay message", "session_id", sess.ID, "type", msg.Type)
		}
	}
}

// runTurn runs one conversation turn and streams the reply. When the turn
// fails the caller hears a spoken fallback instead of dead air.
func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, sess session.Session, utterance string) {
	err := h.relay.Respond(ctx, sess, utterance, func(token string, last bool) error {
		return h.writeJSON(conn, NewTextMessage(token, last))
	})
	if err == nil {
		return
	}
	h.logger.Error("conversation turn failed", "error", err, "session_id", sess.ID)
	if err := h.writeJSON(conn, NewTextMessage(turnErrorReply, true)); err != nil {
		h.logger.Error("failed to send fallback reply", "error", err, "session_id", sess.ID)
	}
}

func (h *Handler) writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// Health reports process liveness. Dependency reachability is deliberately
// not probed here; Twilio retries webhooks, and a failing turn already
// surfaces through metrics and the spoken fallback.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
