package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoiceMetrics exposes counters/histograms for the voice call pipeline.
type VoiceMetrics struct {
	inboundCalls *prometheus.CounterVec
	turnsTotal   *prometheus.CounterVec
	turnLatency  prometheus.Histogram
	toolCalls    *prometheus.CounterVec
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		inboundCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "voice",
			Name:      "inbound_calls_total",
			Help:      "Total inbound Twilio voice webhooks",
		}, []string{"status"}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "voice",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		}, []string{"result"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicvoice",
			Subsystem: "voice",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn, utterance to final token",
			Buckets:   prometheus.DefBuckets,
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Total tool dispatches by tool name",
		}, []string{"tool"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundCalls, m.turnsTotal, m.turnLatency, m.toolCalls)
	return m
}

func (m *VoiceMetrics) ObserveInboundCall(status string) {
	if m == nil {
		return
	}
	m.inboundCalls.WithLabelValues(status).Inc()
}

func (m *VoiceMetrics) ObserveTurn(result string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(result).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *VoiceMetrics) ObserveToolCall(tool string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
}
