package idpmiddleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kitchenhub/go-idp-middleware/core"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)

	t.Run("It counts by label", func(t *testing.T) {
		metrics.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "ok"})
		metrics.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "ok"})
		metrics.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "expired"})

		family := gather(t, reg, core.MetricAuthOutcomes)
		assert.Equal(t, "Authentication outcomes by reason.", family.GetHelp())
		values := map[string]float64{}
		for _, m := range family.GetMetric() {
			values[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
		assert.Equal(t, map[string]float64{"ok": 2, "expired": 1}, values)
	})

	t.Run("It observes histograms", func(t *testing.T) {
		metrics.ObserveHistogram(core.MetricAuthDuration, 0.25, map[string]string{"result": "success"})

		family := gather(t, reg, core.MetricAuthDuration)
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, uint64(1), family.GetMetric()[0].GetHistogram().GetSampleCount())
		assert.Equal(t, 0.25, family.GetMetric()[0].GetHistogram().GetSampleSum())
	})

	t.Run("It sets gauges", func(t *testing.T) {
		metrics.SetGauge(core.MetricKeystoreKeys, 3, map[string]string{"provider": "google"})
		metrics.SetGauge(core.MetricKeystoreKeys, 2, map[string]string{"provider": "google"})

		family := gather(t, reg, core.MetricKeystoreKeys)
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, float64(2), family.GetMetric()[0].GetGauge().GetValue())
	})

	t.Run("It falls back to a generic help text", func(t *testing.T) {
		metrics.IncCounter("custom_total", map[string]string{})
		assert.Equal(t, "custom_total counter", gather(t, reg, "custom_total").GetHelp())
	})

	t.Run("It reuses collectors already in the registry", func(t *testing.T) {
		other := NewPrometheusMetrics(reg)
		assert.NotPanics(t, func() {
			other.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "ok"})
		})

		family := gather(t, reg, core.MetricAuthOutcomes)
		for _, m := range family.GetMetric() {
			if m.GetLabel()[0].GetValue() == "ok" {
				assert.Equal(t, float64(3), m.GetCounter().GetValue())
			}
		}
	})
}

func TestPrometheusMetricsDropsObservations(t *testing.T) {
	t.Run("It logs and drops when the registry refuses the collector", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		require.NoError(t, reg.Register(prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: core.MetricAuthOutcomes, Help: "Registered elsewhere."},
			[]string{"outcome"},
		)))
		observed, recorded := observer.New(zapcore.WarnLevel)
		metrics := NewPrometheusMetrics(reg, WithMetricsLogger(NewZapLogger(zap.New(observed))))

		assert.NotPanics(t, func() {
			metrics.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "ok"})
			metrics.IncCounter(core.MetricAuthOutcomes, map[string]string{"reason": "ok"})
		})

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, core.MetricAuthOutcomes, entries[0].ContextMap()["metric"])
		families, err := reg.Gather()
		require.NoError(t, err)
		assert.Empty(t, families)
	})

	t.Run("It logs and drops observations with a different label set", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		observed, recorded := observer.New(zapcore.WarnLevel)
		metrics := NewPrometheusMetrics(reg, WithMetricsLogger(NewZapLogger(zap.New(observed))))

		metrics.ObserveHistogram(core.MetricAuthDuration, 0.1, map[string]string{"result": "success"})
		metrics.SetGauge(core.MetricKeystoreKeys, 3, map[string]string{"provider": "google"})
		assert.NotPanics(t, func() {
			metrics.ObserveHistogram(core.MetricAuthDuration, 0.2, map[string]string{"provider": "google"})
			metrics.SetGauge(core.MetricKeystoreKeys, 1, map[string]string{})
			metrics.IncCounter(core.MetricKeystoreFetches, map[string]string{"provider": "google"})
			metrics.IncCounter(core.MetricKeystoreFetches, map[string]string{"provider": "google", "result": "ok"})
		})

		assert.Equal(t, 3, recorded.FilterMessage("Dropping metric observation").Len())
		assert.Equal(t, uint64(1), gather(t, reg, core.MetricAuthDuration).GetMetric()[0].GetHistogram().GetSampleCount())
		assert.Equal(t, float64(3), gather(t, reg, core.MetricKeystoreKeys).GetMetric()[0].GetGauge().GetValue())
	})
}
