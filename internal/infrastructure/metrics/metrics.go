package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the voter trust pipeline.
type Metrics struct {
	// Login outcomes: "ok", "invalid_credentials", "locked".
	LoginOutcome *prometheus.CounterVec

	// OTP verification outcomes: "ok", "expired", "mismatch", "exceeded".
	ChallengeOutcome *prometheus.CounterVec

	// Votes committed, labelled by fraud-risk level.
	VotesCast *prometheus.CounterVec

	// External biometric evaluator latency.
	EvaluatorLatency prometheus.Histogram

	// Full aggregation run latency.
	AggregationLatency prometheus.Histogram
}

// New creates a Metrics instance with all pipeline metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		LoginOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "election_login_outcomes_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),

		ChallengeOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "election_challenge_outcomes_total",
			Help: "Total OTP verification attempts by outcome",
		}, []string{"outcome"}),

		VotesCast: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "election_votes_cast_total",
			Help: "Total committed votes by fraud-risk label",
		}, []string{"risk"}),

		EvaluatorLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "election_evaluator_duration_seconds",
			Help:    "Duration of external biometric evaluator calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),

		AggregationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "election_aggregation_duration_seconds",
			Help:    "Duration of fraud analytics aggregation runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
}

// IncrementLogin records a login outcome.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.LoginOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementChallenge records an OTP verification outcome.
func (m *Metrics) IncrementChallenge(outcome string) {
	if m != nil {
		m.ChallengeOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementVote records a committed vote by risk label.
func (m *Metrics) IncrementVote(risk string) {
	if m != nil {
		m.VotesCast.WithLabelValues(risk).Inc()
	}
}

// ObserveEvaluator records the duration of one evaluator call.
func (m *Metrics) ObserveEvaluator(d time.Duration) {
	if m != nil {
		m.EvaluatorLatency.Observe(d.Seconds())
	}
}

// ObserveAggregation records the duration of one aggregation run.
func (m *Metrics) ObserveAggregation(d time.Duration) {
	if m != nil {
		m.AggregationLatency.Observe(d.Seconds())
	}
}
