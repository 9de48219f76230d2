package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's prometheus collectors on a private registry.
// It records resolver attempts and controller activity.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	idleDisconnects prometheus.Counter
	floodBlocked    prometheus.Counter
	activeSessions  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sthashior_commands_total",
				Help: "Total number of chat commands handled",
			},
			[]string{"command", "outcome"},
		),
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sthashior_resolve_attempts_total",
				Help: "Track resolution attempts per provider",
			},
			[]string{"provider", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sthashior_track_transitions_total",
				Help: "Decisions taken when a track ended",
			},
			[]string{"kind"},
		),
		idleDisconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sthashior_idle_disconnects_total",
				Help: "Sessions disconnected because their voice channel stayed empty",
			},
		),
		floodBlocked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sthashior_flood_blocked_total",
				Help: "Commands dropped by the anti-spam cooldown",
			},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sthashior_active_sessions",
				Help: "Number of guilds with a live playback session",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands,
		m.resolves,
		m.transitions,
		m.idleDisconnects,
		m.floodBlocked,
		m.activeSessions,
	)
	return m
}

// Handler serves the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CommandHandled(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObserveResolve(provider, outcome string) {
	m.resolves.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) TrackTransition(kind string) {
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IdleDisconnect() {
	m.idleDisconnects.Inc()
}

func (m *Metrics) ActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) CommandBlocked() {
	m.floodBlocked.Inc()
}
