package voice

import "errors"

// ConversationRelay websocket message types, discriminated by the "type"
// field. Twilio sends setup/prompt/dtmf/interrupt/error, we send
// text/play/sendDigits/language/end.
const (
	MessageTypeSetup     = "setup"
	MessageTypePrompt    = "prompt"
	MessageTypeDTMF      = "dtmf"
	MessageTypeInterrupt = "interrupt"
	MessageTypeError     = "error"

	MessageTypeText       = "text"
	MessageTypePlay       = "play"
	MessageTypeSendDigits = "sendDigits"
	MessageTypeLanguage   = "language"
	MessageTypeEnd        = "end"
)

// InboundMessage is the superset of fields Twilio sends over the relay
// socket; Type selects which subset is populated.
type InboundMessage struct {
	Type string `json:"type"`

	// setup
	SessionID string `json:"sessionId,omitempty"`
	CallSID   string `json:"callSid,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Direction string `json:"direction,omitempty"`

	// prompt
	VoicePrompt string `json:"voicePrompt,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Last        bool   `json:"last,omitempty"`

	// dtmf
	Digit string `json:"digit,omitempty"`

	// interrupt
	UtteranceUntilInterrupt  string `json:"utteranceUntilInterrupt,omitempty"`
	DurationUntilInterruptMs int64  `json:"durationUntilInterruptMs,omitempty"`

	// error
	Description string `json:"description,omitempty"`

	// end
	HandoffData string `json:"handoffData,omitempty"`
}

// TextMessage streams one token of assistant speech to the caller. The frame
// with Last=true terminates the turn.
type TextMessage struct {
	Type          string `json:"type"`
	Token         string `json:"token"`
	Last          bool   `json:"last"`
	Interruptible *bool  `json:"interruptible,omitempty"`
	Preemptible   *bool  `json:"preemptible,omitempty"`
	Lang          string `json:"lang,omitempty"`
}

// NewTextMessage builds a text frame with interruption disabled, matching the
// relay loop's sequential turn model.
func NewTextMessage(token string, last bool) TextMessage {
	no := false
	return TextMessage{
		Type:          MessageTypeText,
		Token:         token,
		Last:          last,
		Interruptible: &no,
		Preemptible:   &no,
	}
}

// PlayMessage asks Twilio to play hold music or a prompt from a URL.
type PlayMessage struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Loop   int    `json:"loop,omitempty"`
}

// SendDigitsMessage plays DTMF digits into the call.
type SendDigitsMessage struct {
	Type   string `json:"type"`
	Digits string `json:"digits"`
}

// LanguageMessage switches TTS and/or transcription language mid-call.
type LanguageMessage struct {
	Type                  string `json:"type"`
	TTSLanguage           string `json:"ttsLanguage,omitempty"`
	TranscriptionLanguage string `json:"transcriptionLanguage,omitempty"`
}

// Validate enforces that at least one language attribute is set.
func (m LanguageMessage) Validate() error {
	if m.TTSLanguage == "" && m.TranscriptionLanguage == "" {
		return errors.New("voice: language message requires ttsLanguage or transcriptionLanguage")
	}
	return nil
}

// EndMessage terminates the relay session.
type EndMessage struct {
	Type        string `json:"type"`
	HandoffData string `json:"handoffData,omitempty"`
}

// StatusCallback carries the fields we care about from Twilio's
// call-completion webhook.
type StatusCallback struct {
	AccountSID   string
	CallSID      string
	CallStatus   string
	From         string
	To           string
	Direction    string
	CallDuration string
}
