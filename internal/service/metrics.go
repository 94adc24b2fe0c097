package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Action outcomes recorded in textassist_actions_total.
const (
	OutcomeSuccess              = "success"
	OutcomeQuotaExceeded        = "quota_exceeded"
	OutcomeTextTooLong          = "text_too_long"
	OutcomeLanguageNotAvailable = "language_not_available"
	OutcomeValidation           = "validation_error"
	OutcomeAIError              = "ai_error"
	OutcomeInternal             = "internal_error"
)

type Metrics struct {
	actions      *prometheus.CounterVec
	aiLatency    *prometheus.HistogramVec
	verification *prometheus.CounterVec
	events       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textassist_actions_total",
			Help: "Correction and translation requests by outcome.",
		}, []string{"action", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textassist_ai_call_seconds",
			Help:    "Latency of AI provider calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"action"}),
		verification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textassist_purchase_verifications_total",
			Help: "Purchase verification attempts by resulting status.",
		}, []string{"status"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textassist_events_consumed_total",
			Help: "Domain events seen by the audit consumer.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.actions, m.aiLatency, m.verification, m.events)
	}
	return m
}

func (m *Metrics) ObserveAction(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveAICall(action string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiLatency.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) ObserveVerification(status string) {
	if m == nil {
		return
	}
	m.verification.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
