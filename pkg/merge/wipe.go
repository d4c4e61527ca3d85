package merge

import "dualstrusion-go/pkg/gcode"

// WipeFeedrate is the transit feedrate for every wipe and toolchange
// repositioning move.
const WipeFeedrate = 3000.0

// WipeStation describes one head's purge and wipe geometry.
type WipeStation struct {
	// Approach waypoint, in machine coordinates.
	X1, Y1, Z1 float64
	// Exit waypoint.
	X2, Y2, Z2 float64

	PurgeRate       float64 // extruder RPM while purging
	PurgeDuration   float64 // ms
	ReverseRate     float64 // extruder RPM while retracting
	ReverseDuration float64 // ms
	Wait            float64 // ms to let the nozzle stop oozing
}

// Wipes holds the station for each head. A nil station is missing.
type Wipes struct {
	Left  *WipeStation
	Right *WipeStation
}

// Get returns the station for id.
func (w Wipes) Get(id Identity) *WipeStation {
	if id == Right {
		return w.Right
	}
	return w.Left
}

// WipeSequence returns the purge and wipe block for one station. The
// approach runs Y, then Z, then X to keep the nozzle clear of the part.
// The output depends only on its arguments.
func WipeSequence(w WipeStation, f gcode.NumberFormat, comments bool) []string {
	feed := " " + f.Word('F', WipeFeedrate)
	dwell := func(ms float64) string { return "G04 " + f.Word('P', ms) }

	out := make([]string, 0, 18)
	if comments {
		out = append(out, "(*************start wipe*************)")
	}
	out = append(out,
		"G53",
		"G1 "+f.Word('Y', w.Y1)+feed,
		"G1 "+f.Word('Z', w.Z1)+feed,
		"G1 "+f.Word('X', w.X1)+feed,

		"M108 "+f.Word('R', w.PurgeRate),
		"M101",
		dwell(w.PurgeDuration),
		"M103",

		"M108 "+f.Word('R', w.ReverseRate),
		"M102",
		dwell(w.ReverseDuration),
		"M103",

		dwell(w.Wait),
		"G1 "+f.Word('X', w.X2)+" "+f.Word('Y', w.Y2)+" "+f.Word('Z', w.Z2)+feed,
	)
	if comments {
		out = append(out, "(*************end wipe*************)")
	}
	return out
}
