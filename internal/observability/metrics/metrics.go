package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HoneypotMetrics exposes counters/histograms for the honeypot turn pipeline.
type HoneypotMetrics struct {
	turnsTotal      *prometheus.CounterVec
	verdictsTotal   *prometheus.CounterVec
	degradedTotal   *prometheus.CounterVec
	exitsTotal      *prometheus.CounterVec
	extractedTotal  *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	conflictsTotal  prometheus.Counter
	adapterLatency  *prometheus.HistogramVec
	turnLatency     prometheus.Histogram
	disclosureTotal *prometheus.CounterVec
}

func NewHoneypotMetrics(reg prometheus.Registerer) *HoneypotMetrics {
	m := &HoneypotMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Processed messages by resulting mode",
		}, []string{"mode"}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "prefilter",
			Name:      "verdicts_total",
			Help:      "Pre-filter verdicts",
		}, []string{"verdict"}),
		degradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "adapter",
			Name:      "degraded_total",
			Help:      "Turns where an external adapter failed or timed out",
		}, []string{"adapter", "reason"}),
		exitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "conversation",
			Name:      "exits_total",
			Help:      "Engagements terminated by exit reason",
		}, []string{"reason"}),
		extractedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "extraction",
			Name:      "items_total",
			Help:      "New intelligence items merged into state",
		}, []string{"kind"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "extraction",
			Name:      "rejected_total",
			Help:      "Candidates dropped by validators",
		}, []string{"kind", "reason"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "state",
			Name:      "conflicts_total",
			Help:      "Version conflicts on state save",
		}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "honeypot",
			Subsystem: "adapter",
			Name:      "latency_seconds",
			Help:      "Latency of classifier, persona and extractor calls",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
		}, []string{"adapter"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "honeypot",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one message",
			Buckets:   prometheus.DefBuckets,
		}),
		disclosureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Subsystem: "persona",
			Name:      "disclosure_total",
			Help:      "Persona replies caught by the disclosure guard",
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.verdictsTotal,
		m.degradedTotal,
		m.exitsTotal,
		m.extractedTotal,
		m.rejectedTotal,
		m.conflictsTotal,
		m.adapterLatency,
		m.turnLatency,
		m.disclosureTotal,
	)
	return m
}

func (m *HoneypotMetrics) ObserveTurn(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(mode).Inc()
	m.turnLatency.Observe(d.Seconds())
}

func (m *HoneypotMetrics) ObserveVerdict(verdict string) {
	if m == nil {
		return
	}
	m.verdictsTotal.WithLabelValues(verdict).Inc()
}

func (m *HoneypotMetrics) ObserveDegraded(adapter, reason string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(adapter, reason).Inc()
}

func (m *HoneypotMetrics) ObserveExit(reason string) {
	if m == nil {
		return
	}
	m.exitsTotal.WithLabelValues(reason).Inc()
}

func (m *HoneypotMetrics) ObserveExtracted(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.extractedTotal.WithLabelValues(kind).Add(float64(n))
}

func (m *HoneypotMetrics) ObserveRejected(kind, reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(kind, reason).Inc()
}

func (m *HoneypotMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *HoneypotMetrics) ObserveAdapterLatency(adapter string, d time.Duration) {
	if m == nil {
		return
	}
	m.adapterLatency.WithLabelValues(adapter).Observe(d.Seconds())
}

func (m *HoneypotMetrics) ObserveDisclosure(blocked bool) {
	if m == nil {
		return
	}
	action := "sanitized"
	if blocked {
		action = "blocked"
	}
	m.disclosureTotal.WithLabelValues(action).Inc()
}
