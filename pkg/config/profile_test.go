package config

import (
	"testing"

	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/gcode"
	"dualstrusion-go/pkg/merge"
)

const fullProfile = `
[dualstrusion]
machine: tom
use_wipes: true
pause_on_toolchange: yes
decimals: 2

[toolhead left]
tool: T1
offset: G55

[toolhead right]
tool: T0
offset: G54

[wipe left]
x1: 10
y1: -60
z1: 5
x2: 20
y2: -40
z2: 5
purge_rate: 5
purge_duration: 1000
reverse_rate: 35
reverse_duration: 300
wait: 2000

[wipe right]
x1: -10
y1: -60
z1: 5
x2: -20
y2: -40
z2: 5
purge_rate: 5
purge_duration: 1000
reverse_rate: 35
reverse_duration: 300
wait: 2000
`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(fullProfile)
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if p.Machine != merge.MachineThingOMatic {
		t.Errorf("expected tom, got %s", p.Machine)
	}
	if !p.UseWipes || !p.PauseOnToolchange {
		t.Errorf("expected wipes and pause enabled, got %+v", p)
	}
	if p.Decimals != 2 {
		t.Errorf("expected 2 decimals, got %d", p.Decimals)
	}
	if p.Wipes.Left == nil || p.Wipes.Right == nil {
		t.Fatal("expected both wipe stations")
	}
	if p.Wipes.Right.X2 != -20 || p.Wipes.Left.Wait != 2000 {
		t.Errorf("unexpected wipe values %+v %+v", *p.Wipes.Left, *p.Wipes.Right)
	}
	if len(p.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", p.Warnings)
	}

	opts := p.Options(nil)
	if opts.Format != (gcode.NumberFormat{MaxDecimals: 2}) {
		t.Errorf("unexpected format %+v", opts.Format)
	}
	if opts.Heads != merge.DefaultHeads() {
		t.Errorf("unexpected heads %+v", opts.Heads)
	}
}

func TestDefaultProfile(t *testing.T) {
	p, err := ParseProfile("")
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if p.Machine != merge.MachineReplicator || p.UseWipes || p.Decimals != 3 {
		t.Errorf("unexpected defaults %+v", p)
	}
	if p.Wipes.Left != nil || p.Wipes.Right != nil {
		t.Error("expected no wipe stations")
	}
}

func TestProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
	}{
		{"bad machine", "[dualstrusion]\nmachine: cupcake\n", errors.ErrConfigValidation},
		{"bad bool", "[dualstrusion]\nuse_wipes: maybe\n", errors.ErrConfigType},
		{"decimals range", "[dualstrusion]\ndecimals: 9\n", errors.ErrConfigValidation},
		{"same tool", "[toolhead left]\ntool: T0\n", errors.ErrConfigValidation},
		{"incomplete wipe", "[wipe left]\nx1: 1\n", errors.ErrConfigOption},
		{"negative wait", "[wipe right]\nx1: 0\ny1: 0\nz1: 0\nx2: 0\ny2: 0\nz2: 0\n" +
			"purge_rate: 1\npurge_duration: 1\nreverse_rate: 1\nreverse_duration: 1\nwait: -5\n",
			errors.ErrConfigValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile(tt.data)
			if !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestProfileWarnings(t *testing.T) {
	p, err := ParseProfile("[dualstrusion]\nmachin: tom\n[extruder]\nx: 1\n")
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if len(p.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", p.Warnings)
	}
	for _, w := range p.Warnings {
		if !errors.IsConfig(w) {
			t.Errorf("expected config category, got %v", w)
		}
	}
}

func TestProfileDrivesMerge(t *testing.T) {
	p, err := ParseProfile("[dualstrusion]\nuse_wipes: true\nmachine: generic\n")
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	left := []string{"M6 T0", "(</layer>)", "(<layer> 0.2)", "G1 X1 Z0.2", "(</layer>)"}
	right := []string{"M6 T1", "(</layer>)", "(<layer> 0.3)", "G1 X2 Z0.3", "(</layer>)"}
	res := merge.Combine(left, right, p.Options(nil))
	if res.Degradation == nil || res.Degradation.Reason != "missing station" {
		t.Errorf("expected wipe degradation, got %+v", res.Degradation)
	}
}
