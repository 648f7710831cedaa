// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Finish reasons for exams.
const (
	ReasonAnswered = "answered"
	ReasonExpired  = "expired"
)

// Metrics groups the application collectors.
type Metrics struct {
	ExamsStarted     *prometheus.CounterVec
	ExamsFinished    *prometheus.CounterVec
	ExamScoreRatio   prometheus.Histogram
	ExamAnswers      *prometheus.CounterVec
	MediaResolutions *prometheus.CounterVec
	AuthEvents       *prometheus.CounterVec
	ActiveWSConns    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExamsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theory_exam",
			Name:      "exams_started_total",
			Help:      "Exam attempts started, by license category.",
		}, []string{"license"}),
		ExamsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theory_exam",
			Name:      "exams_finished_total",
			Help:      "Exam attempts finished, by license category and reason.",
		}, []string{"license", "reason"}),
		ExamScoreRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "theory_exam",
			Name:      "exam_score_ratio",
			Help:      "Score divided by maximum score of finished exams.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		ExamAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theory_exam",
			Name:      "exam_answers_total",
			Help:      "Exam answers recorded, by correctness.",
		}, []string{"correct"}),
		MediaResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theory_exam",
			Name:      "media_resolutions_total",
			Help:      "Media names resolved, by origin.",
		}, []string{"origin"}),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theory_exam",
			Name:      "auth_events_total",
			Help:      "Authentication events, by kind and outcome.",
		}, []string{"event", "outcome"}),
		ActiveWSConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "theory_exam",
			Name:      "ws_connections",
			Help:      "Open exam countdown websocket connections.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ExamsStarted,
			m.ExamsFinished,
			m.ExamScoreRatio,
			m.ExamAnswers,
			m.MediaResolutions,
			m.AuthEvents,
			m.ActiveWSConns,
		)
	}
	return m
}

// NewNop returns unregistered collectors, for tests and tools.
func NewNop() *Metrics {
	return New(nil)
}
