package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHoneypotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHoneypotMetrics(reg)

	m.ObserveTurn("CAUTIOUS", 120*time.Millisecond)
	m.ObserveTurn("CAUTIOUS", 80*time.Millisecond)
	m.ObserveVerdict("OBVIOUS_SCAM")
	m.ObserveDegraded("classifier", "timeout")
	m.ObserveExit("MAX_TURNS")
	m.ObserveExtracted("upi_id", 2)
	m.ObserveExtracted("email", 0)
	m.ObserveRejected("bank_account", "phone_shaped")
	m.ObserveConflict()
	m.ObserveAdapterLatency("classifier", 150*time.Millisecond)
	m.ObserveDisclosure(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("CAUTIOUS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("OBVIOUS_SCAM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degradedTotal.WithLabelValues("classifier", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exitsTotal.WithLabelValues("MAX_TURNS")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractedTotal.WithLabelValues("upi_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("bank_account", "phone_shaped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflictsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disclosureTotal.WithLabelValues("blocked")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.extractedTotal), "zero additions create no series")
}

func TestHoneypotMetricsNilSafe(t *testing.T) {
	var m *HoneypotMetrics
	m.ObserveTurn("MONITORING", time.Second)
	m.ObserveVerdict("UNCERTAIN")
	m.ObserveDegraded("persona", "error")
	m.ObserveExit("STALE")
	m.ObserveExtracted("email", 1)
	m.ObserveRejected("upi_id", "unknown_upi_provider")
	m.ObserveConflict()
	m.ObserveAdapterLatency("extractor", time.Second)
	m.ObserveDisclosure(false)
}
