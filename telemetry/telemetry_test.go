package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func resetMetrics() {
	metricsLock.Lock()
	transitionCounter = nil
	staleCounter = nil
	inFlightGauge = nil
	remoteHistogram = nil
	metricsLock.Unlock()
}

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.TransitionObserved("suppliers", "loading")
	collector.StaleDropped("suppliers")
	collector.SetInFlight(3)
	collector.ObserveRemoteCall("suppliers", 200, time.Millisecond)
}

func TestPrometheusCollectorRegistersAndReusesCounter(t *testing.T) {
	resetMetrics()

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	collector.TransitionObserved("suppliers", "loading")

	family := gather(t, reg, "pharmadesk_operation_transitions_total")
	requireCounterValue(t, family, 1)

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.transitions, again.transitions)

	again.TransitionObserved("suppliers", "loading")
	requireCounterValue(t, gather(t, reg, "pharmadesk_operation_transitions_total"), 2)
}

func TestPrometheusCollectorReusesMetricsRegisteredElsewhere(t *testing.T) {
	resetMetrics()
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	resetMetrics()
	second, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, first.stale, second.stale)
}

func TestPrometheusCollectorRecordsStaleInFlightAndLatency(t *testing.T) {
	resetMetrics()
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.StaleDropped("orders.sent")
	collector.SetInFlight(2)
	collector.ObserveRemoteCall("orders.sent", 200, 20*time.Millisecond)
	collector.ObserveRemoteCall("orders.sent", 0, time.Millisecond)

	requireCounterValue(t, gather(t, reg, "pharmadesk_operation_stale_dropped_total"), 1)

	gauge := gather(t, reg, "pharmadesk_operation_calls_in_flight")
	require.Len(t, gauge.Metric, 1)
	require.Equal(t, float64(2), gauge.Metric[0].GetGauge().GetValue())

	latency := gather(t, reg, "pharmadesk_remote_request_duration_seconds")
	require.Len(t, latency.Metric, 2)
	codes := map[string]uint64{}
	for _, metric := range latency.Metric {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "code" {
				codes[label.GetValue()] = metric.GetHistogram().GetSampleCount()
			}
		}
	}
	require.Equal(t, map[string]uint64{"200": 1, "error": 1}, codes)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *PrometheusCollector
	collector.TransitionObserved("a", "b")
	collector.StaleDropped("a")
	collector.SetInFlight(1)
	collector.ObserveRemoteCall("a", 500, time.Second)
}

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}
