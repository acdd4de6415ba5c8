package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gokatarajesh/livequiz/internal/game"
)

const namespace = "livequiz"

// Metrics holds the Prometheus collectors for the game engine and its
// background workers.
type Metrics struct {
	activeSessions   prometheus.Gauge
	connectedSockets prometheus.Gauge
	phaseTransitions *prometheus.CounterVec
	answers          *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	timerFirings     *prometheus.CounterVec
	persistJobs      *prometheus.CounterVec
}

var _ game.Metrics = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		connectedSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_sockets",
			Help:      "Open WebSocket connections.",
		}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Session phase transitions by target phase.",
		}, []string{"phase"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Accepted answers by correctness.",
		}, []string{"correct"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_rejections_total",
			Help:      "Rejected answer submissions by error code.",
		}, []string{"code"}),
		timerFirings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_firings_total",
			Help:      "Timer callbacks by kind and whether they were stale.",
		}, []string{"kind", "stale"}),
		persistJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_jobs_total",
			Help:      "Write-behind jobs by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.activeSessions,
		m.connectedSockets,
		m.phaseTransitions,
		m.answers,
		m.rejections,
		m.timerFirings,
		m.persistJobs,
	)
	return m
}

func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }
func (m *Metrics) SocketOpened()  { m.connectedSockets.Inc() }
func (m *Metrics) SocketClosed()  { m.connectedSockets.Dec() }

func (m *Metrics) PhaseEntered(phase game.Phase) {
	m.phaseTransitions.WithLabelValues(string(phase)).Inc()
}

func (m *Metrics) AnswerAccepted(correct bool) {
	m.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) AnswerRejected(code string) {
	m.rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) TimerFired(kind game.TimerKind, stale bool) {
	m.timerFirings.WithLabelValues(string(kind), strconv.FormatBool(stale)).Inc()
}

// PersistJob counts a write-behind outcome: ok, failed or dropped.
func (m *Metrics) PersistJob(result string) {
	m.persistJobs.WithLabelValues(result).Inc()
}
