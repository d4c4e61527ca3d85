package merge

import (
	"strings"

	"dualstrusion-go/pkg/layer"
)

// Inputs as a single-extruder slicer writes them: each file names tool 0
// and its own offset, whichever head it is meant for.
var (
	leftInput = []string{
		"(start)",
		"M104 S220 T0",
		"G28",
		"M6 T0",
		"G0 X0 Y-60 Z5",
		"(</layer>)",
		"(<layer> 0.2)",
		"G1 X1 Y1 Z0.2 F1800",
		"(</layer>)",
		"(<layer> 0.4)",
		"G1 X2 Y2 Z0.4 F1800",
		"(</layer>)",
		"(<layer> 0.6)",
		"G1 X3 Y3 Z0.6 F1800",
		"(</layer>)",
		"M104 S0 T0",
		"G1 Z10",
		"(end)",
	}
	rightInput = []string{
		"(start)",
		"M104 S230 T1",
		"G28",
		"M6 T1",
		"G0 X0 Y-50 Z5",
		"(</layer>)",
		"(<layer> 0.2)",
		"G1 X5 Y5 Z0.2 F1200",
		"(</layer>)",
		"(<layer> 0.5)",
		"G1 X6 Y6 Z0.5",
		"(</layer>)",
		"M104 S0 T1",
		"G1 Z10",
		"(end)",
	}
)

func testStation(base float64) *WipeStation {
	return &WipeStation{
		X1: base, Y1: -60, Z1: 5,
		X2: base + 10, Y2: -40, Z2: 5,
		PurgeRate: 5, PurgeDuration: 1000,
		ReverseRate: 35, ReverseDuration: 300,
		Wait: 2000,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Progress = NoProgress
	return opts
}

func heights(layers []layer.Layer) []float64 {
	out := make([]float64, len(layers))
	for i, l := range layers {
		out[i] = l.Height()
	}
	return out
}

func isToolchange(l layer.Layer) bool {
	return l.Len() > 0 && l.Line(0) == toolchangeStart
}

// owner reports which input a layer came from by its tagged comments.
func owner(l layer.Layer) Identity {
	for _, line := range l.Lines() {
		switch {
		case strings.HasPrefix(line, commentPrefix(Left)):
			return Left
		case strings.HasPrefix(line, commentPrefix(Right)):
			return Right
		}
	}
	return None
}

func contains(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// stepped returns an input with n layers spaced step apart, e.g.
// stepped("T0", 0.2, 3) has layers at 0.2, 0.4 and 0.6.
func stepped(tool string, step float64, n int) []string {
	lines := []string{"(start)", "M104 S220 " + tool, "M6 " + tool, "(</layer>)"}
	for i := 1; i <= n; i++ {
		h := step * float64(i)
		lines = append(lines,
			"(<layer> "+formatHeight(h)+")",
			"G1 X"+formatHeight(float64(i))+" Y1 Z"+formatHeight(h)+" F1500",
			"G1 X2 Y2 E"+formatHeight(float64(i)),
			"(</layer>)",
		)
	}
	return append(lines, "M104 S0 "+tool, "M18", "(end)")
}

func formatHeight(v float64) string {
	return testOptions().Format.Format(v)
}
