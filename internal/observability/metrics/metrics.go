package metrics

import "github.com/prometheus/client_golang/prometheus"

// WaitlistMetrics exposes counters/histograms for the wizard, the submission
// bridge and the countdown.
type WaitlistMetrics struct {
	advanceTotal       *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	dispatchTotal      *prometheus.CounterVec
	dispatchLatency    prometheus.Histogram
	activeSessions     prometheus.Gauge
	countdownRemaining prometheus.Gauge
	countdownErrors    prometheus.Counter
}

func NewWaitlistMetrics(reg prometheus.Registerer) *WaitlistMetrics {
	m := &WaitlistMetrics{
		advanceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "wizard",
			Name:      "advance_total",
			Help:      "Advance attempts by result",
		}, []string{"result"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "bridge",
			Name:      "submissions_total",
			Help:      "Submission attempts by synchronous outcome",
		}, []string{"outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "bridge",
			Name:      "dispatch_total",
			Help:      "Background dispatches by locally observed status; not a delivery signal",
		}, []string{"status"}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waitlist",
			Subsystem: "bridge",
			Name:      "dispatch_seconds",
			Help:      "Time spent in background dispatch",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waitlist",
			Subsystem: "wizard",
			Name:      "active_sessions",
			Help:      "Mounted wizard sessions",
		}),
		countdownRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waitlist",
			Subsystem: "countdown",
			Name:      "remaining_seconds",
			Help:      "Seconds left on the enrollment countdown",
		}),
		countdownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waitlist",
			Subsystem: "countdown",
			Name:      "persist_errors_total",
			Help:      "Countdown ticks whose value could not be persisted",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.advanceTotal,
		m.submissionsTotal,
		m.dispatchTotal,
		m.dispatchLatency,
		m.activeSessions,
		m.countdownRemaining,
		m.countdownErrors,
	)
	return m
}

func (m *WaitlistMetrics) ObserveAdvance(result string) {
	if m == nil {
		return
	}
	m.advanceTotal.WithLabelValues(result).Inc()
}

func (m *WaitlistMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *WaitlistMetrics) ObserveDispatch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(status).Inc()
	m.dispatchLatency.Observe(seconds)
}

func (m *WaitlistMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *WaitlistMetrics) SetCountdownRemaining(seconds float64) {
	if m == nil {
		return
	}
	m.countdownRemaining.Set(seconds)
}

func (m *WaitlistMetrics) ObserveCountdownPersistError() {
	if m == nil {
		return
	}
	m.countdownErrors.Inc()
}
