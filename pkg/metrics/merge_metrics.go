// Metrics recorded by the merge service.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"time"
)

// MergeMetrics is the set of metrics the merge service exports.
type MergeMetrics struct {
	MergesTotal      *Counter
	ToolchangesTotal *Counter
	DiagnosticsTotal *Counter
	Degradations     *Counter
	InputLines       *Counter
	OutputLines      *Counter
	MergeDuration    *Histogram
	OutputLayers     *Histogram

	WebSocketClients *Gauge
	Uptime           *Gauge
	GoGoroutines     *Gauge
	GoMemoryHeap     *Gauge

	registry  *Registry
	startTime time.Time
}

// MergeOutcome is what one finished merge contributes.
type MergeOutcome struct {
	Status      string // completed or degraded
	Machine     string
	LeftLines   int
	RightLines  int
	OutputLines int
	Layers      int
	Toolchanges int
	// Codes holds one diagnostic code per reported problem.
	Codes       []string
	Degradation string
	Duration    time.Duration
}

// NewMergeMetrics creates and registers the merge metrics.
func NewMergeMetrics() *MergeMetrics {
	m := &MergeMetrics{
		MergesTotal:      NewCounter("dualstrusion_merges_total", "Merges run, by status and machine class"),
		ToolchangesTotal: NewCounter("dualstrusion_toolchanges_total", "Toolchange blocks emitted"),
		DiagnosticsTotal: NewCounter("dualstrusion_diagnostics_total", "Recoverable problems reported, by code"),
		Degradations:     NewCounter("dualstrusion_degradations_total", "Features disabled during a merge, by feature"),
		InputLines:       NewCounter("dualstrusion_input_lines_total", "Toolpath lines read, by side"),
		OutputLines:      NewCounter("dualstrusion_output_lines_total", "Merged toolpath lines written"),
		MergeDuration:    NewHistogram("dualstrusion_merge_duration_seconds", "Wall time of a merge", DefaultBuckets()),
		OutputLayers:     NewHistogram("dualstrusion_output_layers", "Layers in a merged toolpath", ExponentialBuckets(16, 4, 6)),
		WebSocketClients: NewGauge("dualstrusion_websocket_clients", "Connected WebSocket clients"),
		Uptime:           NewGauge("dualstrusion_uptime_seconds", "Seconds since the service started"),
		GoGoroutines:     NewGauge("go_goroutines", "Number of goroutines"),
		GoMemoryHeap:     NewGauge("go_memstats_heap_alloc_bytes", "Heap bytes allocated and in use"),
		registry:         NewRegistry(),
		startTime:        time.Now(),
	}
	m.registry.MustRegister(
		m.MergesTotal,
		m.ToolchangesTotal,
		m.DiagnosticsTotal,
		m.Degradations,
		m.InputLines,
		m.OutputLines,
		m.MergeDuration,
		m.OutputLayers,
		m.WebSocketClients,
		m.Uptime,
		m.GoGoroutines,
		m.GoMemoryHeap,
	)
	return m
}

// Registry returns the registry holding every merge metric.
func (m *MergeMetrics) Registry() *Registry {
	return m.registry
}

// RecordMerge accounts for one finished merge.
func (m *MergeMetrics) RecordMerge(o MergeOutcome) {
	m.MergesTotal.Inc(Labels{"status": o.Status, "machine": o.Machine})
	m.ToolchangesTotal.Add(nil, uint64(o.Toolchanges))
	m.InputLines.Add(Labels{"side": "left"}, uint64(o.LeftLines))
	m.InputLines.Add(Labels{"side": "right"}, uint64(o.RightLines))
	m.OutputLines.Add(nil, uint64(o.OutputLines))
	for _, code := range o.Codes {
		m.DiagnosticsTotal.Inc(Labels{"code": code})
	}
	if o.Degradation != "" {
		m.Degradations.Inc(Labels{"feature": o.Degradation})
	}
	m.MergeDuration.Observe(nil, o.Duration.Seconds())
	m.OutputLayers.Observe(nil, float64(o.Layers))
}

// Gather refreshes the process gauges and renders every metric.
func (m *MergeMetrics) Gather() string {
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)
	m.GoGoroutines.Set(nil, float64(goruntime.NumGoroutine()))
	m.GoMemoryHeap.Set(nil, float64(ms.HeapAlloc))
	m.Uptime.Set(nil, time.Since(m.startTime).Seconds())
	return m.registry.Gather()
}
