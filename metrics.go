package idpmiddleware

import (
	"errors"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kitchenhub/go-idp-middleware/core"
)

var metricHelp = map[string]string{
	core.MetricAuthOutcomes:        "Authentication outcomes by reason.",
	core.MetricAuthDuration:        "Time spent authenticating a request.",
	core.MetricKeystoreFetches:     "Signing key fetches by provider and result.",
	core.MetricKeystoreKeys:        "Signing keys currently cached per provider.",
	core.MetricKeystoreUncacheable: "Signing key responses that carried no max-age.",
}

// PrometheusMetrics implements core.Metrics with Prometheus collectors that
// are created on first use. The label set of a metric is fixed by its first
// observation; observations that cannot be recorded are logged and dropped.
type PrometheusMetrics struct {
	reg    prometheus.Registerer
	logger core.Logger

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	rejected   map[string]struct{}
}

// PrometheusOption configures PrometheusMetrics.
type PrometheusOption func(*PrometheusMetrics)

// WithMetricsLogger sets the logger used to report dropped observations.
func WithMetricsLogger(logger core.Logger) PrometheusOption {
	return func(m *PrometheusMetrics) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewPrometheusMetrics returns a core.Metrics backed by Prometheus. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		reg:        reg,
		logger:     core.NopLogger{},
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		rejected:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *PrometheusMetrics) IncCounter(name string, tags map[string]string) {
	vec := lookup(m, m.counters, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: name, Help: help(name, "counter")}, labelNames(tags))
	})
	if vec == nil {
		return
	}
	c, err := vec.GetMetricWith(tags)
	if err != nil {
		m.drop(name, err)
		return
	}
	c.Inc()
}

func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	vec := lookup(m, m.histograms, name, func() *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: name, Help: help(name, "histogram")}, labelNames(tags))
	})
	if vec == nil {
		return
	}
	o, err := vec.GetMetricWith(tags)
	if err != nil {
		m.drop(name, err)
		return
	}
	o.Observe(value)
}

func (m *PrometheusMetrics) SetGauge(name string, value float64, tags map[string]string) {
	vec := lookup(m, m.gauges, name, func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: name, Help: help(name, "gauge")}, labelNames(tags))
	})
	if vec == nil {
		return
	}
	g, err := vec.GetMetricWith(tags)
	if err != nil {
		m.drop(name, err)
		return
	}
	g.Set(value)
}

// lookup returns the collector cached under name, registering a new one on
// first use. It returns nil when the registry refused the collector; the
// refusal is logged once and later observations are dropped silently.
func lookup[C prometheus.Collector](m *PrometheusMetrics, cache map[string]C, name string, build func() C) C {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero C
	if vec, ok := cache[name]; ok {
		return vec
	}
	if _, ok := m.rejected[name]; ok {
		return zero
	}
	vec, err := register(m.reg, build())
	if err != nil {
		m.rejected[name] = struct{}{}
		m.logger.Warn("Metric could not be registered, dropping its observations",
			"metric", name, "error", err)
		return zero
	}
	cache[name] = vec
	return vec
}

func (m *PrometheusMetrics) drop(name string, err error) {
	m.logger.Warn("Dropping metric observation", "metric", name, "error", err)
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func help(name, kind string) string {
	if h, ok := metricHelp[name]; ok {
		return h
	}
	return name + " " + kind
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
