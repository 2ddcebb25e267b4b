package telemetry

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the operation runtime and the
// backend client.
//
// Hooks are executed inline with state transitions and must stay cheap.
type Collector interface {
	TransitionObserved(operation, status string)
	StaleDropped(operation string)
	SetInFlight(count int)
	ObserveRemoteCall(operation string, statusCode int, elapsed time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) TransitionObserved(string, string)             {}
func (noopCollector) StaleDropped(string)                           {}
func (noopCollector) SetInFlight(int)                               {}
func (noopCollector) ObserveRemoteCall(string, int, time.Duration) {}

// PrometheusCollector exposes telemetry via Prometheus.
type PrometheusCollector struct {
	transitions *prometheus.CounterVec
	stale       *prometheus.CounterVec
	inFlight    prometheus.Gauge
	remote      *prometheus.HistogramVec
}

var (
	metricsLock       sync.Mutex
	transitionCounter *prometheus.CounterVec
	staleCounter      *prometheus.CounterVec
	inFlightGauge     prometheus.Gauge
	remoteHistogram   *prometheus.HistogramVec
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics already registered by an earlier call are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsLock.Lock()
	defer metricsLock.Unlock()

	var err error
	if transitionCounter == nil {
		transitionCounter, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmadesk_operation_transitions_total",
			Help: "Number of lifecycle transitions per operation and target status.",
		}, []string{"operation", "status"}))
		if err != nil {
			return nil, err
		}
	}
	if staleCounter == nil {
		staleCounter, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmadesk_operation_stale_dropped_total",
			Help: "Number of superseded operation results that were discarded.",
		}, []string{"operation"}))
		if err != nil {
			return nil, err
		}
	}
	if inFlightGauge == nil {
		inFlightGauge, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pharmadesk_operation_calls_in_flight",
			Help: "Number of dispatched operation calls that have not settled yet.",
		}))
		if err != nil {
			return nil, err
		}
	}
	if remoteHistogram == nil {
		remoteHistogram, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharmadesk_remote_request_duration_seconds",
			Help:    "Latency of backend requests per operation and HTTP status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "code"}))
		if err != nil {
			return nil, err
		}
	}

	return &PrometheusCollector{
		transitions: transitionCounter,
		stale:       staleCounter,
		inFlight:    inFlightGauge,
		remote:      remoteHistogram,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return collector, nil
}

// TransitionObserved counts a transition of operation into status.
func (p *PrometheusCollector) TransitionObserved(operation, status string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(operation, status).Inc()
}

// StaleDropped counts a discarded result.
func (p *PrometheusCollector) StaleDropped(operation string) {
	if p == nil || p.stale == nil {
		return
	}
	p.stale.WithLabelValues(operation).Inc()
}

// SetInFlight updates the in-flight call gauge.
func (p *PrometheusCollector) SetInFlight(count int) {
	if p == nil || p.inFlight == nil {
		return
	}
	p.inFlight.Set(float64(count))
}

// ObserveRemoteCall records the latency of a backend request. A zero status
// code marks a transport failure.
func (p *PrometheusCollector) ObserveRemoteCall(operation string, statusCode int, elapsed time.Duration) {
	if p == nil || p.remote == nil {
		return
	}
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	p.remote.WithLabelValues(operation, code).Observe(elapsed.Seconds())
}
