package layer

import "dualstrusion-go/pkg/gcode"

// Axis is an optional coordinate.
type Axis struct {
	Value float64
	Set   bool
}

// Position holds the axes a motion instruction mentioned.
type Position struct {
	X, Y, Z Axis
}

func axis(cmd *gcode.Command, letter byte) Axis {
	v, ok := cmd.Value(letter)
	return Axis{Value: v, Set: ok}
}

// FirstPosition returns the axes of the first motion instruction.
func FirstPosition(l Layer) (Position, bool) {
	for i := 0; i < l.Len(); i++ {
		cmd := gcode.Parse(l.Line(i))
		if cmd.IsMotion() {
			return Position{X: axis(cmd, 'X'), Y: axis(cmd, 'Y'), Z: axis(cmd, 'Z')}, true
		}
	}
	return Position{}, false
}

// EffectiveZ returns the last explicit Z of a motion instruction. The first
// move of a layer is sometimes still at the previous layer's height, so the
// tail is authoritative.
func EffectiveZ(l Layer) (float64, bool) {
	for i := l.Len() - 1; i >= 0; i-- {
		cmd := gcode.Parse(l.Line(i))
		if !cmd.IsMotion() {
			continue
		}
		if z, ok := cmd.Value('Z'); ok {
			return z, true
		}
	}
	return 0, false
}

// FirstFeedrate returns the first explicit feedrate as an "F..." word, or
// "" if the layer sets none.
func FirstFeedrate(l Layer, f gcode.NumberFormat) string {
	for i := 0; i < l.Len(); i++ {
		if v, ok := gcode.Parse(l.Line(i)).Value('F'); ok {
			return f.Word('F', v)
		}
	}
	return ""
}

// LastFeedrate returns the last explicit feedrate as an "F..." word, or "".
func LastFeedrate(l Layer, f gcode.NumberFormat) string {
	for i := l.Len() - 1; i >= 0; i-- {
		if v, ok := gcode.Parse(l.Line(i)).Value('F'); ok {
			return f.Word('F', v)
		}
	}
	return ""
}
