// Package metrics registers the prometheus counters and gauges for the
// cache and RTO packages. Neither of those packages imports prometheus
// directly; they depend only on the small CacheSink/RTOSink interfaces
// below, so this is the single place the prometheus client is wired in,
// mirroring how idk/metrics.go is the sole prometheus registration point
// for FeatureBase's ingest domain rather than scattering registration
// calls through ingest code.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheSink receives cache events. A nil-safe no-op implementation
// (NopCacheSink) is used whenever a Cache is constructed without one.
type CacheSink interface {
	Hit()
	Miss()
	Eviction(strategy string)
	SegmentEntries(segment int, n int)
}

// RTOSink receives optimizer events over the lifetime of a single Optimize
// call.
type RTOSink interface {
	Round()
	Resample()
	Underflow()
	BestPathCost(cost int64)
}

type nopCacheSink struct{}

func (nopCacheSink) Hit()                      {}
func (nopCacheSink) Miss()                     {}
func (nopCacheSink) Eviction(strategy string)  {}
func (nopCacheSink) SegmentEntries(segment, n int) {}

// NopCacheSink discards every event.
var NopCacheSink CacheSink = nopCacheSink{}

type nopRTOSink struct{}

func (nopRTOSink) Round()              {}
func (nopRTOSink) Resample()           {}
func (nopRTOSink) Underflow()          {}
func (nopRTOSink) BestPathCost(int64)  {}

// NopRTOSink discards every event.
var NopRTOSink RTOSink = nopRTOSink{}

// Registry is the prometheus-backed implementation of both sinks,
// registered once per process (or once per test, against a private
// registerer) and shared across every Cache/Optimize call that wants
// observability.
type Registry struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions *prometheus.CounterVec
	segmentEntries *prometheus.GaugeVec

	rtoRounds     prometheus.Counter
	rtoResamples  prometheus.Counter
	rtoUnderflows prometheus.Counter
	rtoBestCost   prometheus.Gauge
}

// NewRegistry creates and registers the full metric set against reg. Pass
// prometheus.DefaultRegisterer to expose metrics on the process-wide
// /metrics handler, or a fresh prometheus.NewRegistry() to isolate a test.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Number of Cache.Get calls that found the key.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Number of Cache.Get calls that did not find the key.",
		}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Number of entries evicted by policy, labeled by eviction strategy.",
		}, []string{"strategy"}),
		segmentEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cache_segment_entries",
			Help: "Entry count of a segment as of the last ReportSegmentMetrics call.",
		}, []string{"segment"}),
		rtoRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rto_rounds_total",
			Help: "Number of path-extension rounds run by Optimize.",
		}),
		rtoResamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rto_resamples_total",
			Help: "Number of times an extension was re-sampled at a larger limit.",
		}),
		rtoUnderflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rto_underflow_total",
			Help: "Number of Optimize calls that found no complete path with positive cardinality.",
		}),
		rtoBestCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rto_best_path_cost",
			Help: "Cost of the path returned by the most recent successful Optimize call.",
		}),
	}
	reg.MustRegister(r.cacheHits, r.cacheMisses, r.cacheEvictions, r.segmentEntries,
		r.rtoRounds, r.rtoResamples, r.rtoUnderflows, r.rtoBestCost)
	return r
}

func (r *Registry) Hit()  { r.cacheHits.Inc() }
func (r *Registry) Miss() { r.cacheMisses.Inc() }
func (r *Registry) Eviction(strategy string) {
	r.cacheEvictions.WithLabelValues(strategy).Inc()
}
func (r *Registry) SegmentEntries(segment, n int) {
	r.segmentEntries.WithLabelValues(strconv.Itoa(segment)).Set(float64(n))
}

func (r *Registry) Round()                 { r.rtoRounds.Inc() }
func (r *Registry) Resample()              { r.rtoResamples.Inc() }
func (r *Registry) Underflow()             { r.rtoUnderflows.Inc() }
func (r *Registry) BestPathCost(cost int64) { r.rtoBestCost.Set(float64(cost)) }
