// Prometheus text-format metrics for the merge service.
//
// Counters, gauges and histograms keyed by label set, collected in a
// Registry and rendered in registration order. Series within a metric
// are rendered sorted by label key so scrapes are stable.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType is the Prometheus TYPE of a metric.
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Labels is one label set.
type Labels map[string]string

// key is a canonical identity for the label set.
func (l Labels) key() string {
	if len(l) == 0 {
		return ""
	}
	names := l.names()
	var sb strings.Builder
	for i, k := range names {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

func (l Labels) names() []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// with returns a copy of l with one extra label.
func (l Labels) with(name, value string) Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[name] = value
	return out
}

// String renders the label set as {a="1",b="2"}.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range l.names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(labelEscaper.Replace(l[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Metric is anything a Registry can render.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

// desc holds what every metric shares: its name, help text and series.
type desc struct {
	name, help string
	mu         sync.Mutex
	series     map[string]Labels
}

func (d *desc) Name() string { return d.name }
func (d *desc) Help() string { return d.help }

func (d *desc) header(sb *strings.Builder, t MetricType) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", d.name, d.help, d.name, t)
}

// track remembers the label set for key. Callers hold d.mu.
func (d *desc) track(key string, labels Labels) {
	if d.series == nil {
		d.series = make(map[string]Labels)
	}
	if _, ok := d.series[key]; !ok {
		d.series[key] = labels
	}
}

func (d *desc) sortedKeys() []string {
	keys := make([]string, 0, len(d.series))
	for k := range d.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Counter only goes up.
type Counter struct {
	desc
	values map[string]uint64
}

// NewCounter creates a counter.
func NewCounter(name, help string) *Counter {
	return &Counter{desc: desc{name: name, help: help}, values: make(map[string]uint64)}
}

func (c *Counter) Type() MetricType { return TypeCounter }

// Inc adds one.
func (c *Counter) Inc(labels Labels) { c.Add(labels, 1) }

// Add adds delta.
func (c *Counter) Add(labels Labels, delta uint64) {
	key := labels.key()
	c.mu.Lock()
	c.track(key, labels)
	c.values[key] += delta
	c.mu.Unlock()
}

// Get returns the value for labels, zero if never set.
func (c *Counter) Get(labels Labels) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[labels.key()]
}

func (c *Counter) Write(sb *strings.Builder) {
	c.header(sb, TypeCounter)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.sortedKeys() {
		fmt.Fprintf(sb, "%s%s %d\n", c.name, c.series[key], c.values[key])
	}
}

// Gauge can go up and down.
type Gauge struct {
	desc
	values map[string]float64
}

// NewGauge creates a gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{desc: desc{name: name, help: help}, values: make(map[string]float64)}
}

func (g *Gauge) Type() MetricType { return TypeGauge }

// Set replaces the value.
func (g *Gauge) Set(labels Labels, v float64) {
	key := labels.key()
	g.mu.Lock()
	g.track(key, labels)
	g.values[key] = v
	g.mu.Unlock()
}

// Add adds delta, which may be negative.
func (g *Gauge) Add(labels Labels, delta float64) {
	key := labels.key()
	g.mu.Lock()
	g.track(key, labels)
	g.values[key] += delta
	g.mu.Unlock()
}

func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

// Get returns the value for labels, zero if never set.
func (g *Gauge) Get(labels Labels) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.values[labels.key()]
}

func (g *Gauge) Write(sb *strings.Builder) {
	g.header(sb, TypeGauge)
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range g.sortedKeys() {
		fmt.Fprintf(sb, "%s%s %s\n", g.name, g.series[key], formatFloat(g.values[key]))
	}
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	desc
	bounds []float64
	values map[string]*histogramValue
}

type histogramValue struct {
	count  uint64
	sum    float64
	counts []uint64 // per bucket, not cumulative
}

// NewHistogram creates a histogram over the given upper bounds.
func NewHistogram(name, help string, bounds []float64) *Histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &Histogram{
		desc:   desc{name: name, help: help},
		bounds: sorted,
		values: make(map[string]*histogramValue),
	}
}

// DefaultBuckets suit request latencies in seconds.
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// ExponentialBuckets returns count bounds starting at start.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = start
		start *= factor
	}
	return out
}

func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records one value.
func (h *Histogram) Observe(labels Labels, v float64) {
	key := labels.key()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.track(key, labels)
	hv, ok := h.values[key]
	if !ok {
		hv = &histogramValue{counts: make([]uint64, len(h.bounds))}
		h.values[key] = hv
	}
	hv.count++
	hv.sum += v
	if i := sort.SearchFloat64s(h.bounds, v); i < len(h.bounds) {
		hv.counts[i]++
	}
}

// Timer observes the seconds elapsed until the returned func is called.
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() { h.Observe(labels, time.Since(start).Seconds()) }
}

// HistogramSnapshot is a point-in-time copy of one series.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64 // cumulative
}

// Snapshot copies the series for labels.
func (h *Histogram) Snapshot(labels Labels) HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := HistogramSnapshot{Buckets: make(map[float64]uint64, len(h.bounds))}
	hv, ok := h.values[labels.key()]
	if !ok {
		return snap
	}
	snap.Count, snap.Sum = hv.count, hv.sum
	var cum uint64
	for i, b := range h.bounds {
		cum += hv.counts[i]
		snap.Buckets[b] = cum
	}
	return snap
}

func (h *Histogram) Write(sb *strings.Builder) {
	h.header(sb, TypeHistogram)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range h.sortedKeys() {
		labels, hv := h.series[key], h.values[key]
		var cum uint64
		for i, b := range h.bounds {
			cum += hv.counts[i]
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, labels.with("le", formatFloat(b)), cum)
		}
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, labels.with("le", "+Inf"), hv.count)
		fmt.Fprintf(sb, "%s_sum%s %s\n", h.name, labels, formatFloat(hv.sum))
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, labels, hv.count)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Registry renders a set of metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds metric; names must be unique.
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := metric.Name()
	if _, ok := r.metrics[name]; ok {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register that panics on a duplicate.
func (r *Registry) MustRegister(metrics ...Metric) {
	for _, m := range metrics {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Get returns the metric called name, or nil.
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather renders every metric in registration order.
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
