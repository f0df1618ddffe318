package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the wizard.
// Tracks step transitions, guard refusals, OTP outcomes, file rejections
// and submissions.
type Metrics struct {
	SessionsStarted    prometheus.Counter
	Transitions        *prometheus.CounterVec
	GuardFailures      *prometheus.CounterVec
	OTPOutcomes        *prometheus.CounterVec
	FileRejections     *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmitDuration     prometheus.Histogram
	ActiveSessionGauge prometheus.Gauge
}

// New registers the wizard metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the wizard metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "idcard_wizard_sessions_started_total",
			Help: "Total number of wizard sessions started",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_wizard_transitions_total",
			Help: "Step transitions by direction and target step",
		}, []string{"direction", "step"}),
		GuardFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_wizard_guard_failures_total",
			Help: "Refused forward transitions by problem code",
		}, []string{"step", "code"}),
		OTPOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_wizard_otp_total",
			Help: "OTP requests and confirmations by outcome",
		}, []string{"phase", "outcome"}),
		FileRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_wizard_file_rejections_total",
			Help: "Rejected uploads by slot and reason",
		}, []string{"slot", "reason"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idcard_wizard_submissions_total",
			Help: "Submission attempts by role and outcome",
		}, []string{"role", "outcome"}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idcard_wizard_submit_duration_seconds",
			Help:    "Duration of submissions including summary rendering",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveSessionGauge: f.NewGauge(prometheus.GaugeOpts{
			Name: "idcard_wizard_active_sessions",
			Help: "Wizard sessions held in memory",
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	m.SessionsStarted.Inc()
	m.ActiveSessionGauge.Inc()
}

func (m *Metrics) DecrementActiveSessions() {
	m.ActiveSessionGauge.Dec()
}

func (m *Metrics) RecordTransition(direction, step string) {
	m.Transitions.WithLabelValues(direction, step).Inc()
}

func (m *Metrics) RecordGuardFailure(step, code string) {
	m.GuardFailures.WithLabelValues(step, code).Inc()
}

func (m *Metrics) RecordOTP(phase, outcome string) {
	m.OTPOutcomes.WithLabelValues(phase, outcome).Inc()
}

func (m *Metrics) RecordFileRejection(slot, reason string) {
	m.FileRejections.WithLabelValues(slot, reason).Inc()
}

// ObserveSubmit records one submission attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(role, outcome string, start time.Time) {
	m.Submissions.WithLabelValues(role, outcome).Inc()
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}
