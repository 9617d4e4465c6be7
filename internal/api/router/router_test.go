package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/internal/voice"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

func newTestRouter() http.Handler {
	logger := logging.New("error")
	relay := voice.NewRelay(directory.NewSeededCustomerStore(), nil, nil, voice.RelayConfig{}, nil, logger)
	handler := voice.NewHandler(session.NewMemoryStore(), relay, voice.HandlerConfig{
		WebSocketURL:    "wss://agent.example.com/voice/ws",
		WelcomeGreeting: "Welcome to the Appollo Clinic. How can I help you today?",
	}, nil, logger)
	return New(&Config{
		Logger:       logger,
		VoiceHandler: handler,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
}

func TestRoutes(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantCode: http.StatusOK},
		{name: "inbound call", method: http.MethodPost, target: "/voice", body: "From=%2B14803828571", wantCode: http.StatusOK},
		{name: "status callback", method: http.MethodPost, target: "/voice/callback", body: "CallStatus=ringing", wantCode: http.StatusNoContent},
		{name: "ws without session", method: http.MethodGet, target: "/voice/ws", wantCode: http.StatusBadRequest},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantCode: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, target: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
