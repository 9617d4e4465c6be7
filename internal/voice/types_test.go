package voice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundMessageUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want InboundMessage
	}{
		{
			name: "setup",
			raw: `{"type":"setup","sessionId":"VX1","callSid":"CA1","from":"+14803828571",` +
				`"to":"+15550001111","direction":"inbound"}`,
			want: InboundMessage{
				Type:      MessageTypeSetup,
				SessionID: "VX1",
				CallSID:   "CA1",
				From:      "+14803828571",
				To:        "+15550001111",
				Direction: "inbound",
			},
		},
		{
			name: "prompt",
			raw:  `{"type":"prompt","voicePrompt":"book an appointment","lang":"en-US","last":true}`,
			want: InboundMessage{
				Type:        MessageTypePrompt,
				VoicePrompt: "book an appointment",
				Lang:        "en-US",
				Last:        true,
			},
		},
		{
			name: "dtmf",
			raw:  `{"type":"dtmf","digit":"5"}`,
			want: InboundMessage{Type: MessageTypeDTMF, Digit: "5"},
		},
		{
			name: "interrupt",
			raw:  `{"type":"interrupt","utteranceUntilInterrupt":"your appointment is","durationUntilInterruptMs":820}`,
			want: InboundMessage{
				Type:                     MessageTypeInterrupt,
				UtteranceUntilInterrupt:  "your appointment is",
				DurationUntilInterruptMs: 820,
			},
		},
		{
			name: "error",
			raw:  `{"type":"error","description":"transcription unavailable"}`,
			want: InboundMessage{Type: MessageTypeError, Description: "transcription unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got InboundMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTextMessage(t *testing.T) {
	raw, err := json.Marshal(NewTextMessage("Hello", false))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "Hello", got["token"])
	assert.Equal(t, false, got["last"])
	assert.Equal(t, false, got["interruptible"])
	assert.Equal(t, false, got["preemptible"])
}

func TestLanguageMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     LanguageMessage
		wantErr bool
	}{
		{name: "tts only", msg: LanguageMessage{Type: MessageTypeLanguage, TTSLanguage: "hi-IN"}},
		{name: "transcription only", msg: LanguageMessage{Type: MessageTypeLanguage, TranscriptionLanguage: "hi-IN"}},
		{name: "both", msg: LanguageMessage{Type: MessageTypeLanguage, TTSLanguage: "hi-IN", TranscriptionLanguage: "hi-IN"}},
		{name: "neither", msg: LanguageMessage{Type: MessageTypeLanguage}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
