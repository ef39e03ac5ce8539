// Package observability exposes prometheus metrics for authentication outcomes.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "userauth"

// Metrics contains the counters recorded by the auth service and transport.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registrations  *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	Sessions       *prometheus.CounterVec
	PasswordResets *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "User registrations by result",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Credential checks by result",
			},
			[]string{"result"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Session lifecycle events by action",
			},
			[]string{"action"},
		),
		PasswordResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "password_resets_total",
				Help:      "Password reset requests and completions by result",
			},
			[]string{"stage", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(m.Registrations, m.Logins, m.Sessions, m.PasswordResets, m.HTTPRequests)
	return m
}

// NewRegistry returns a registry with the standard Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Handler serves the registry in the prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSession(action string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(action).Inc()
}

func (m *Metrics) ObservePasswordReset(stage, result string) {
	if m == nil {
		return
	}
	m.PasswordResets.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
