package merge

import (
	"fmt"

	"dualstrusion-go/pkg/layer"
)

// ProgressFunc returns the annotation placed before an output layer.
// done is the number of instruction lines already emitted and total the
// number in the whole stream. An empty result inserts nothing.
type ProgressFunc func(done, total int) string

// BuildProgress is the default ProgressFunc. It emits the M73 build
// percentage understood by MakerBot firmware.
func BuildProgress(done, total int) string {
	percent := 0
	if total > 0 {
		percent = done * 100 / total
	}
	return fmt.Sprintf("M73 P%d", percent)
}

// NoProgress inserts no annotations.
func NoProgress(done, total int) string { return "" }

// Assemble flattens layers in order, inserting one progress annotation
// before each layer. A nil progress uses BuildProgress.
func Assemble(layers []layer.Layer, progress ProgressFunc) []string {
	if progress == nil {
		progress = BuildProgress
	}
	total := 0
	for _, l := range layers {
		total += l.Len()
	}

	out := make([]string, 0, total+len(layers))
	done := 0
	for _, l := range layers {
		if note := progress(done, total); note != "" {
			out = append(out, note)
		}
		for i := 0; i < l.Len(); i++ {
			out = append(out, l.Line(i))
		}
		done += l.Len()
	}
	return out
}
