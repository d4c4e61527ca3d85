// Package layer splits a slicer's instruction stream into height-tagged
// layers and answers position and feedrate queries about them.
package layer

// EndHeight is the height given to content after the last real layer
// (cooldown, shutdown).
const EndHeight = 999999.0

// PreambleHeight is the height of each input's start block.
const PreambleHeight = 0.0

// Layer is an immutable block of instruction lines at one height.
type Layer struct {
	height float64
	lines  []string
}

// New creates a layer owning a copy of lines.
func New(height float64, lines []string) Layer {
	owned := make([]string, len(lines))
	copy(owned, lines)
	return Layer{height: height, lines: owned}
}

// Height returns the layer height.
func (l Layer) Height() float64 { return l.height }

// Len returns the number of instruction lines.
func (l Layer) Len() int { return len(l.lines) }

// Line returns the i-th line.
func (l Layer) Line(i int) string { return l.lines[i] }

// Lines returns a copy of the layer's lines.
func (l Layer) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// IsEnd reports whether the layer holds end matter.
func (l Layer) IsEnd() bool { return l.height >= EndHeight }

// Queue is an owned, front-popping sequence of layers.
type Queue struct {
	layers []Layer
	head   int
}

// NewQueue creates a queue over a copy of layers.
func NewQueue(layers []Layer) *Queue {
	owned := make([]Layer, len(layers))
	copy(owned, layers)
	return &Queue{layers: owned}
}

// Len returns the number of layers not yet popped.
func (q *Queue) Len() int { return len(q.layers) - q.head }

// Empty reports whether every layer has been popped.
func (q *Queue) Empty() bool { return q.Len() == 0 }

// Peek returns the front layer without removing it.
func (q *Queue) Peek() (Layer, bool) {
	return q.PeekAt(0)
}

// PeekAt returns the i-th remaining layer without removing it.
func (q *Queue) PeekAt(i int) (Layer, bool) {
	if i < 0 || q.head+i >= len(q.layers) {
		return Layer{}, false
	}
	return q.layers[q.head+i], true
}

// Pop removes and returns the front layer. It panics on an empty queue.
func (q *Queue) Pop() Layer {
	if q.Empty() {
		panic("layer: pop from empty queue")
	}
	l := q.layers[q.head]
	q.layers[q.head] = Layer{}
	q.head++
	return l
}

// NextIsEnd reports whether the front layer is end matter.
func (q *Queue) NextIsEnd() bool {
	l, ok := q.Peek()
	return ok && l.IsEnd()
}
