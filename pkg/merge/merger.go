package merge

import (
	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/gcode"
	"dualstrusion-go/pkg/layer"
	"dualstrusion-go/pkg/log"
)

const mergedStartHeader = "(**** Merged startup gcode for Dualstrusion ****)"

// merger owns both queues and the output for one Combine call.
type merger struct {
	opts     *Options
	log      *log.Logger
	report   func(*errors.MergeError)
	comments bool
	useWipes bool

	left  *layer.Queue
	right *layer.Queue
	out   []layer.Layer

	// last is the head of the most recently emitted real layer.
	last Identity
	// lastReal is that layer, the departing layer of the next toolchange.
	lastReal layer.Layer
	// doneEnd is set once the first end-matter block has been emitted.
	doneEnd bool
	homeY   float64
	homeSet bool

	toolchanges int
}

func (m *merger) queue(id Identity) *layer.Queue {
	if id == Right {
		return m.right
	}
	return m.left
}

// run drains both queues into m.out.
func (m *merger) run() []layer.Layer {
	m.homeY = DefaultHomeY
	if !m.left.Empty() && !m.right.Empty() {
		m.mergeStart()
	}
	for !m.left.Empty() || !m.right.Empty() {
		switch {
		case m.right.Empty():
			m.drain(Left)
		case m.left.Empty():
			m.drain(Right)
		default:
			m.step()
		}
	}
	return m.out
}

// step emits the lower of the two front layers.
func (m *merger) step() {
	lf, _ := m.left.Peek()
	rf, _ := m.right.Peek()
	switch {
	case lf.Height() < rf.Height():
		m.take(Left)
	case rf.Height() < lf.Height():
		m.take(Right)
	default:
		m.tie(lf)
	}
}

// take emits the front layer of id, changing heads first if needed.
func (m *merger) take(id Identity) {
	q := m.queue(id)
	if q.NextIsEnd() {
		m.emitEnd(q.Pop())
		return
	}
	if m.last != id {
		next, _ := q.Peek()
		m.out = append(m.out, m.toolchange(m.last, m.lastReal, id, next))
	}
	m.emitReal(id)
}

// tie keeps printing with the current head so equal heights never cost a
// toolchange. With no head yet, the left head starts.
func (m *merger) tie(front layer.Layer) {
	if m.last == None {
		if !front.IsEnd() {
			m.out = append(m.out, m.toolchange(None, m.lastReal, Left, front))
		}
		m.last = Left
	}
	q := m.queue(m.last)
	if q.NextIsEnd() {
		m.emitEnd(q.Pop())
		return
	}
	m.emitReal(m.last)
}

// drain empties the only non-empty queue. A toolchange is needed at most
// once, when the other head printed last.
func (m *merger) drain(id Identity) {
	q := m.queue(id)
	if q.NextIsEnd() {
		m.emitEnd(q.Pop())
		return
	}
	if m.last == id.Other() {
		next, _ := q.Peek()
		m.out = append(m.out, m.toolchange(m.last, m.lastReal, id, next))
	}
	m.emitReal(id)
}

// emitReal pops a real layer of id. When that was the head's last real
// layer its heater is switched off right away.
func (m *merger) emitReal(id Identity) {
	q := m.queue(id)
	l := q.Pop()
	m.out = append(m.out, l)
	m.last = id
	m.lastReal = l
	if q.NextIsEnd() {
		m.out = append(m.out, m.cooldown(id))
	}
}

func (m *merger) cooldown(id Identity) layer.Layer {
	line := "M104 S0 " + m.opts.Heads.Get(id).Tool
	if m.comments {
		line += " (done with " + id.String() + " extruder, cool it)"
	}
	return layer.New(layer.EndHeight, []string{line})
}

// emitEnd appends end matter. Comments always survive; heater commands
// never do since each head was already cooled; everything else survives
// only in the first end-matter block.
func (m *merger) emitEnd(l layer.Layer) {
	var kept []string
	for i := 0; i < l.Len(); i++ {
		line := l.Line(i)
		switch {
		case gcode.IsComment(line):
			kept = append(kept, line)
		case isSetTemperature(line):
		case !m.doneEnd:
			kept = append(kept, line)
		}
	}
	m.doneEnd = true
	if len(kept) > 0 {
		m.out = append(m.out, layer.New(layer.EndHeight, kept))
	}
}

// mergeStart stitches both start blocks into one. The head that prints the
// lower second layer dominates: its start block runs whole, while only the
// other's comments and heater commands are kept ahead of the head-select
// point.
func (m *merger) mergeStart() {
	lf, _ := m.left.Peek()
	rf, _ := m.right.Peek()
	for _, front := range []struct {
		src string
		l   layer.Layer
	}{{"left", lf}, {"right", rf}} {
		if front.l.Height() != layer.PreambleHeight {
			m.report(errors.PreambleError(front.l.Height()).SetSource(front.src))
		}
	}

	dominant := Left
	l2, lok := m.left.PeekAt(1)
	r2, rok := m.right.PeekAt(1)
	if rok && (!lok || r2.Height() < l2.Height()) {
		dominant = Right
	}
	secondary := dominant.Other()

	dom := m.queue(dominant).Pop().Lines()
	sec := m.queue(secondary).Pop().Lines()

	var start []string
	if m.comments {
		start = append(start, mergedStartHeader)
	}

	i := 0
	for ; i < len(dom) && !isHeadSelect(dom[i]); i++ {
		start = append(start, dom[i])
	}
	dom = dom[i:]

	j := 0
	for ; j < len(sec) && !isHeadSelect(sec[j]); j++ {
		if gcode.IsComment(sec[j]) || isSetTemperature(sec[j]) {
			start = append(start, sec[j])
		}
	}
	sec = sec[j:]

	if len(dom) > 0 {
		start = append(start, dom[0])
		dom = dom[1:]
	}
	if len(sec) > 0 {
		start = append(start, sec[0])
		sec = sec[1:]
	}

	start = append(start, m.selectTool(dominant))
	for _, line := range dom {
		m.noteHome(line)
		start = append(start, line)
	}
	start = append(start, m.selectTool(secondary))
	start = append(start, sec...)
	start = append(start, m.selectTool(dominant))

	merged := layer.New(layer.PreambleHeight, start)
	m.out = append(m.out, merged)
	m.last = dominant
	m.lastReal = merged
	m.log.Debug("start blocks merged, %s head first", dominant)
}

// noteHome records the Y of the first rapid move that names Y.
func (m *merger) noteHome(line string) {
	if m.homeSet {
		return
	}
	cmd := gcode.Parse(line)
	if !cmd.Is('G', 0) {
		return
	}
	if y, ok := cmd.Value('Y'); ok {
		m.homeY = y
		m.homeSet = true
	}
}

func isHeadSelect(line string) bool {
	return gcode.Parse(line).Is('M', 6)
}

func isSetTemperature(line string) bool {
	return gcode.Parse(line).Is('M', 104)
}
