package merge

import (
	"strings"

	"dualstrusion-go/pkg/gcode"
	"dualstrusion-go/pkg/layer"
)

// DefaultHomeY is the retreat Y used for pauses when the start block never
// revealed a home position.
const DefaultHomeY = -70.0

// pauseLift is how far above the arriving layer the nozzle waits.
const pauseLift = 10.0

const (
	toolchangeStart = "(*************start toolchange*************)"
	toolchangeEnd   = "(*************end toolchange*************)"
	oozePrompt      = "M71 (Wait for oozing to  finish and then      press OK)"
	continueMarker  = "M70 P1 (Continuing...)"
)

// selectTool returns the head-select instruction for id.
func (m *merger) selectTool(id Identity) string {
	line := "M108 " + m.opts.Heads.Get(id).Tool
	if m.comments {
		line += " (Set tool)"
	}
	return line
}

// toolchange builds the block that parks the departing head and brings the
// arriving head to the first position of its next layer.
func (m *merger) toolchange(from Identity, departing layer.Layer, to Identity, arriving layer.Layer) layer.Layer {
	f := m.opts.Format
	pause := m.opts.PauseOnToolchange

	var out []string
	if m.comments {
		out = append(out, toolchangeStart)
	}
	if m.useWipes {
		out = append(out, m.wipeBlocks(from, to)...)
	}

	pos, hasPos := layer.FirstPosition(arriving)
	if hasPos {
		if z, ok := layer.EffectiveZ(arriving); ok {
			pos.Z = layer.Axis{Value: z, Set: true}
		}
	}

	if pause {
		if hasPos {
			retreat := "G1 " + f.Word('Y', m.homeY)
			if pos.Z.Set {
				retreat += " " + f.Word('Z', pos.Z.Value+pauseLift)
			}
			out = append(out, retreat+" "+f.Word('F', WipeFeedrate))
		}
		out = append(out, "M72 P2", oozePrompt, continueMarker)
	}

	if offset := m.opts.Heads.Get(to).Offset; offset != "" {
		out = append(out, offset)
	}
	out = append(out, m.selectTool(to), "M18 A B")

	feed := layer.FirstFeedrate(arriving, f)
	if feed == "" {
		feed = layer.LastFeedrate(departing, f)
	}

	if hasPos {
		if !pause && pos.Z.Set {
			out = append(out, "G1 "+f.Word('Z', pos.Z.Value)+" "+f.Word('F', WipeFeedrate))
		}
		if move := moveTo(pos, feed, f); move != "" {
			out = append(out, move)
		}
	}
	if feed != "" {
		out = append(out, "G1 "+feed)
	}
	if m.comments {
		out = append(out, toolchangeEnd)
	}

	m.toolchanges++
	m.log.Debug("toolchange %s -> %s at %g", from, to, arriving.Height())
	return layer.New((departing.Height()+arriving.Height())/2, out)
}

// wipeBlocks emits one wipe on shared-wipe machines, otherwise the
// departing head's wipe followed by the arriving head's.
func (m *merger) wipeBlocks(from, to Identity) []string {
	if m.opts.Machine.SharedWipe() {
		return WipeSequence(*m.opts.Wipes.Left, m.opts.Format, m.comments)
	}
	var out []string
	if from != None {
		out = append(out, WipeSequence(*m.opts.Wipes.Get(from), m.opts.Format, m.comments)...)
	}
	return append(out, WipeSequence(*m.opts.Wipes.Get(to), m.opts.Format, m.comments)...)
}

// moveTo returns a G1 to the set axes of pos, or "" if none is set.
func moveTo(pos layer.Position, feed string, f gcode.NumberFormat) string {
	var b strings.Builder
	b.WriteString("G1")
	n := 0
	for _, a := range []struct {
		letter byte
		axis   layer.Axis
	}{{'X', pos.X}, {'Y', pos.Y}, {'Z', pos.Z}} {
		if a.axis.Set {
			b.WriteByte(' ')
			b.WriteString(f.Word(a.letter, a.axis.Value))
			n++
		}
	}
	if n == 0 {
		return ""
	}
	if feed != "" {
		b.WriteByte(' ')
		b.WriteString(feed)
	}
	return b.String()
}
