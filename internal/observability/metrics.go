// Package observability carries the pipeline's metrics and health
// checks. The registry doubles as the source for the /metrics scrape
// endpoint and for in-process reads by the cycle engine.
package observability

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Metric primitives
// ---------------------------------------------------------------------------

// Counter only goes up. Lock-free so the cycle hot path can bump it
// without contention.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds delta, rounded to the nearest whole count. Negative deltas
// are ignored to keep the counter monotonic.
func (c *Counter) Add(delta float64) {
	if delta < 0 {
		return
	}
	c.value.Add(int64(math.Round(delta)))
}

// Value returns the current count.
func (c *Counter) Value() float64 {
	return float64(c.value.Load())
}

// Gauge holds the latest value of something that moves both ways,
// like open position count or session capital.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	mu     sync.Mutex
	value  float64
}

// Set replaces the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Histogram buckets observations by upper bound. counts[i] holds the
// cumulative count of observations <= buckets[i], matching the
// Prometheus histogram convention.
type Histogram struct {
	name   string
	help   string
	labels map[string]string

	mu      sync.Mutex
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
		}
	}
}

// Count returns how many values have been observed.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the running total of observed values.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// snapshot copies the bucket state for the exporter so formatting
// happens outside the lock.
func (h *Histogram) snapshot() (buckets []float64, counts []int64, sum float64, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buckets = append([]float64(nil), h.buckets...)
	counts = append([]int64(nil), h.counts...)
	return buckets, counts, h.sum, h.count
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds every metric by name. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// NewCounter registers a counter, or returns the existing one when the
// name is already taken.
func (r *Registry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: copyLabels(labels)}
	r.counters[name] = c
	return c
}

// NewGauge registers a gauge, or returns the existing one when the
// name is already taken.
func (r *Registry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: copyLabels(labels)}
	r.gauges[name] = g
	return g
}

// NewHistogram registers a histogram with the given upper bounds, or
// returns the existing one when the name is already taken.
func (r *Registry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  copyLabels(labels),
		buckets: bounds,
		counts:  make([]int64, len(bounds)),
	}
	r.histograms[name] = h
	return h
}

// GetCounter returns a registered counter or nil.
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge returns a registered gauge or nil.
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram returns a registered histogram or nil.
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// DefaultLatencyBuckets covers sub-millisecond cache hits through
// multi-second upstream stalls, in milliseconds.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// ---------------------------------------------------------------------------
// Pipeline metric set
// ---------------------------------------------------------------------------

// PipelineMetrics returns a registry pre-loaded with every metric the
// cycle engine and main wiring report into.
func PipelineMetrics() *Registry {
	r := NewRegistry()

	r.NewCounter("alphatrace_cycles_total",
		"Total analysis cycles completed",
		nil)

	r.NewCounter("alphatrace_cycle_errors_total",
		"Total analysis cycles that failed",
		nil)

	r.NewCounter("alphatrace_wallets_analyzed_total",
		"Total wallet analyses produced",
		nil)

	r.NewCounter("alphatrace_swap_events_total",
		"Total swap events processed",
		nil)

	r.NewCounter("alphatrace_signals_total",
		"Total convergence signals detected",
		nil)

	r.NewCounter("alphatrace_signals_rejected_total",
		"Total signals rejected by security screening",
		map[string]string{"reason": ""})

	r.NewCounter("alphatrace_positions_opened_total",
		"Total positions opened",
		nil)

	r.NewCounter("alphatrace_positions_closed_total",
		"Total positions closed",
		map[string]string{"reason": ""})

	r.NewCounter("alphatrace_fetch_errors_total",
		"Total market data fetch errors",
		map[string]string{"provider": ""})

	r.NewGauge("alphatrace_open_positions",
		"Number of currently open positions",
		nil)

	r.NewGauge("alphatrace_capital_usd",
		"Current session capital in USD",
		nil)

	r.NewGauge("alphatrace_realized_pnl_usd",
		"Realized session PnL in USD",
		nil)

	r.NewGauge("alphatrace_watchlist_wallets",
		"Number of wallets on the watchlist",
		nil)

	r.NewHistogram("alphatrace_cycle_latency_ms",
		"Analysis cycle latency in milliseconds",
		nil,
		DefaultLatencyBuckets)

	r.NewHistogram("alphatrace_fetch_latency_ms",
		"Market data fetch latency in milliseconds",
		nil,
		DefaultLatencyBuckets)

	return r
}

func copyLabels(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
