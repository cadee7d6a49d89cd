package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abiy-Samson/Blazegraph/metrics"
)

func gather(t *testing.T, reg *prometheus.Registry) []*io_prometheus_client.MetricFamily {
	t.Helper()
	fams, err := reg.Gather()
	require.NoError(t, err)
	return fams
}

func metricExists(name string, fams []*io_prometheus_client.MetricFamily) bool {
	for _, f := range fams {
		if f.GetName() == name {
			return true
		}
	}
	return false
}

func TestRegistry_RegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.NewRegistry(reg)

	r.Hit()
	r.Miss()
	r.Eviction("lirs")
	r.SegmentEntries(0, 3)
	r.Round()
	r.Resample()
	r.Underflow()
	r.BestPathCost(42)

	fams := gather(t, reg)
	for _, name := range []string{
		"cache_hits_total",
		"cache_misses_total",
		"cache_evictions_total",
		"cache_segment_entries",
		"rto_rounds_total",
		"rto_resamples_total",
		"rto_underflow_total",
		"rto_best_path_cost",
	} {
		assert.True(t, metricExists(name, fams), "metric does not exist: %s", name)
	}
}

func TestNopSinks_DoNotPanic(t *testing.T) {
	metrics.NopCacheSink.Hit()
	metrics.NopCacheSink.Miss()
	metrics.NopCacheSink.Eviction("none")
	metrics.NopCacheSink.SegmentEntries(0, 0)

	metrics.NopRTOSink.Round()
	metrics.NopRTOSink.Resample()
	metrics.NopRTOSink.Underflow()
	metrics.NopRTOSink.BestPathCost(0)
}
