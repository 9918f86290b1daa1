// Package metrics exposes Prometheus collectors for RCON whitelist traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danyaalu/whitelist-bot/internal/domain"
)

const namespace = "whitelist"

type Metrics struct {
	commands    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	targetUp    *prometheus.GaugeVec
	kickFailure *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rcon",
			Name:      "commands_total",
			Help:      "RCON whitelist commands by server, action, platform and outcome.",
		}, []string{"server", "action", "platform", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rcon",
			Name:      "command_duration_seconds",
			Help:      "Wall time of one connect, authenticate, execute, close sequence.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"server", "action"}),
		targetUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rcon",
			Name:      "target_up",
			Help:      "1 if the server's RCON port accepted a TCP connection on the last probe.",
		}, []string{"server"}),
		kickFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kick_failures_total",
			Help:      "Best-effort kicks after a remove that did not succeed.",
		}, []string{"server"}),
	}
	reg.MustRegister(m.commands, m.duration, m.targetUp, m.kickFailure)
	return m
}

// ObserveCommand records one orchestrated command.
func (m *Metrics) ObserveCommand(req domain.ActionRequest, res domain.ExecutionResult) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(res.Target, req.Kind.String(), req.Platform.String(), res.Category.String()).Inc()
	if res.Category != domain.CategoryConfiguration {
		m.duration.WithLabelValues(res.Target, req.Kind.String()).Observe(res.Duration.Seconds())
	}
}

func (m *Metrics) KickFailed(server string) {
	if m == nil {
		return
	}
	m.kickFailure.WithLabelValues(server).Inc()
}

func (m *Metrics) SetTargetUp(server string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.targetUp.WithLabelValues(server).Set(v)
}
