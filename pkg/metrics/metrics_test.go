// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewCounter("merges_total", "Merges")
	if v := c.Get(nil); v != 0 {
		t.Errorf("expected initial value 0, got %d", v)
	}
	c.Inc(nil)
	c.Add(nil, 10)
	if v := c.Get(nil); v != 11 {
		t.Errorf("expected 11, got %d", v)
	}

	done := Labels{"status": "completed"}
	degraded := Labels{"status": "degraded"}
	c.Inc(done)
	c.Inc(done)
	c.Inc(degraded)
	if c.Get(done) != 2 || c.Get(degraded) != 1 {
		t.Errorf("unexpected labelled values %d, %d", c.Get(done), c.Get(degraded))
	}
	if c.Type() != TypeCounter || c.Name() != "merges_total" || c.Help() != "Merges" {
		t.Error("unexpected metadata")
	}
}

func TestCounterConcurrent(t *testing.T) {
	c := NewCounter("lines_total", "Lines")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc(Labels{"side": "left"})
			}
		}()
	}
	wg.Wait()
	if v := c.Get(Labels{"side": "left"}); v != 8000 {
		t.Errorf("expected 8000, got %d", v)
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("clients", "Clients")
	g.Inc(nil)
	g.Inc(nil)
	g.Dec(nil)
	if v := g.Get(nil); v != 1 {
		t.Errorf("expected 1, got %v", v)
	}
	g.Set(nil, 2.5)
	g.Add(nil, -0.5)
	if v := g.Get(nil); v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("duration", "Duration", []float64{1, 0.1, 0.5})
	for _, v := range []float64{0.05, 0.1, 0.3, 0.7, 3} {
		h.Observe(nil, v)
	}
	snap := h.Snapshot(nil)
	if snap.Count != 5 {
		t.Errorf("expected count 5, got %d", snap.Count)
	}
	if snap.Sum < 4.14 || snap.Sum > 4.16 {
		t.Errorf("unexpected sum %v", snap.Sum)
	}
	want := map[float64]uint64{0.1: 2, 0.5: 3, 1: 4}
	for b, n := range want {
		if snap.Buckets[b] != n {
			t.Errorf("bucket le=%v: expected %d, got %d", b, n, snap.Buckets[b])
		}
	}

	if empty := h.Snapshot(Labels{"x": "y"}); empty.Count != 0 {
		t.Error("expected empty snapshot for unknown labels")
	}
}

func TestHistogramTimer(t *testing.T) {
	h := NewHistogram("t", "T", DefaultBuckets())
	stop := h.Timer(nil)
	time.Sleep(time.Millisecond)
	stop()
	if snap := h.Snapshot(nil); snap.Count != 1 || snap.Sum <= 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestExponentialBuckets(t *testing.T) {
	got := ExponentialBuckets(16, 4, 3)
	if len(got) != 3 || got[0] != 16 || got[1] != 64 || got[2] != 256 {
		t.Errorf("unexpected buckets %v", got)
	}
}

func TestLabelsString(t *testing.T) {
	tests := []struct {
		labels Labels
		want   string
	}{
		{nil, ""},
		{Labels{"b": "2", "a": "1"}, `{a="1",b="2"}`},
		{Labels{"msg": "say \"hi\"\n"}, `{msg="say \"hi\"\n"}`},
		{Labels{"path": `c:\x`}, `{path="c:\\x"}`},
	}
	for _, tt := range tests {
		if got := tt.labels.String(); got != tt.want {
			t.Errorf("got %s, want %s", got, tt.want)
		}
	}
}

func TestRegistryGather(t *testing.T) {
	r := NewRegistry()
	c := NewCounter("a_total", "A")
	g := NewGauge("b", "B")
	h := NewHistogram("c_seconds", "C", []float64{1})
	r.MustRegister(c, g, h)

	if err := r.Register(NewCounter("a_total", "dup")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if r.Get("b") != g {
		t.Error("expected registered gauge")
	}

	c.Inc(Labels{"side": "right"})
	c.Inc(Labels{"side": "left"})
	g.Set(nil, 3)
	h.Observe(Labels{"k": "v"}, 0.5)

	want := `# HELP a_total A
# TYPE a_total counter
a_total{side="left"} 1
a_total{side="right"} 1
# HELP b B
# TYPE b gauge
b 3
# HELP c_seconds C
# TYPE c_seconds histogram
c_seconds_bucket{k="v",le="1"} 1
c_seconds_bucket{k="v",le="+Inf"} 1
c_seconds_sum{k="v"} 0.5
c_seconds_count{k="v"} 1
`
	if got := r.Gather(); got != want {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestMergeMetrics(t *testing.T) {
	m := NewMergeMetrics()
	m.RecordMerge(MergeOutcome{
		Status:      "degraded",
		Machine:     "replicator",
		LeftLines:   10,
		RightLines:  12,
		OutputLines: 30,
		Layers:      4,
		Toolchanges: 3,
		Codes:       []string{"WIPE_MISSING", "LAYER_HEIGHT", "LAYER_HEIGHT"},
		Degradation: "wipes",
		Duration:    20 * time.Millisecond,
	})

	if v := m.MergesTotal.Get(Labels{"status": "degraded", "machine": "replicator"}); v != 1 {
		t.Errorf("expected 1 merge, got %d", v)
	}
	if v := m.DiagnosticsTotal.Get(Labels{"code": "LAYER_HEIGHT"}); v != 2 {
		t.Errorf("expected 2 layer height diagnostics, got %d", v)
	}
	if v := m.InputLines.Get(Labels{"side": "right"}); v != 12 {
		t.Errorf("expected 12 right lines, got %d", v)
	}

	out := m.Gather()
	for _, want := range []string{
		"dualstrusion_toolchanges_total 3",
		`dualstrusion_degradations_total{feature="wipes"} 1`,
		"dualstrusion_merge_duration_seconds_count 1",
		`dualstrusion_output_layers_bucket{le="16"} 1`,
		"# TYPE go_goroutines gauge",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
