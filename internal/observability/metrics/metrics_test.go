package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestVoiceMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewVoiceMetrics(reg)

	m.ObserveInboundCall("accepted")
	m.ObserveInboundCall("accepted")
	m.ObserveInboundCall("unknown_customer")
	m.ObserveTurn("ok", 1.2)
	m.ObserveToolCall("welcome_message")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.inboundCalls.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inboundCalls.WithLabelValues("unknown_customer")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.turnsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.toolCalls.WithLabelValues("welcome_message")))
}

func TestVoiceMetricsNilSafe(t *testing.T) {
	var m *VoiceMetrics
	m.ObserveInboundCall("accepted")
	m.ObserveTurn("ok", 0.1)
	m.ObserveToolCall("send_otp")
}
