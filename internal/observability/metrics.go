// Package observability exposes prometheus instrumentation for the webhook
// intake and the durable bus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type WebhookMetrics struct {
	verifications *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hireboard",
			Subsystem: "webhook",
			Name:      "verifications_total",
			Help:      "Webhook signature verification outcomes.",
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hireboard",
			Subsystem: "webhook",
			Name:      "dispatches_total",
			Help:      "Internal event dispatch outcomes.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.verifications, m.dispatches)
	return m
}

func (m *WebhookMetrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *WebhookMetrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

func newRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer {
	return reg
}

// Module provides the metrics registry and instrument sets.
var Module = fx.Module("observability",
	fx.Provide(newRegistry),
	fx.Provide(provideRegisterer),
	fx.Provide(NewWebhookMetrics),
)
