package merge

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/gcode"
	"dualstrusion-go/pkg/layer"
	"dualstrusion-go/pkg/log"
)

// Options configures one merge.
type Options struct {
	// Heads names the tool-select and offset tokens of each head. The zero
	// value means DefaultHeads.
	Heads Heads
	// UseWipes inserts wipe blocks into every toolchange.
	UseWipes bool
	// Machine picks shared or per-head wiping.
	Machine MachineClass
	// PauseOnToolchange waits for operator confirmation at each toolchange.
	PauseOnToolchange bool
	// Wipes holds the stations. Missing stations disable wiping.
	Wipes Wipes
	// Format is the numeric policy. The zero value means gcode.DefaultFormat.
	Format gcode.NumberFormat
	// Progress annotates each output layer. Nil means BuildProgress.
	Progress ProgressFunc
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

// DefaultOptions returns options for a Replicator without wipes.
func DefaultOptions() Options {
	return Options{
		Heads:   DefaultHeads(),
		Machine: MachineReplicator,
		Format:  gcode.DefaultFormat,
	}
}

func (o Options) withDefaults() Options {
	if o.Heads == (Heads{}) {
		o.Heads = DefaultHeads()
	}
	if o.Format == (gcode.NumberFormat{}) {
		o.Format = gcode.DefaultFormat
	}
	if o.Progress == nil {
		o.Progress = BuildProgress
	}
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
	return o
}

// missingStation returns the first head whose station the machine needs
// but the options lack, or None.
func (o Options) missingStation() Identity {
	needed := []Identity{Left, Right}
	if o.Machine.SharedWipe() {
		needed = needed[:1]
	}
	for _, id := range needed {
		if o.Wipes.Get(id) == nil {
			return id
		}
	}
	return None
}

// Degradation describes a feature the merge turned off.
type Degradation struct {
	Feature string `json:"feature"`
	Reason  string `json:"reason"`
	Head    string `json:"head,omitempty"`
}

// Result is the outcome of a merge.
type Result struct {
	RunID       uuid.UUID
	Lines       []string
	Layers      []layer.Layer
	Toolchanges int
	// Degradation is set when wiping was requested but disabled.
	Degradation *Degradation
	// Diagnostics holds every recoverable problem, in the order found.
	Diagnostics []*errors.MergeError
}

// WriteTo writes the merged stream, one instruction per line.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, line := range r.Lines {
		k, err := bw.WriteString(line + "\n")
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Combine merges the left head's stream with the right head's. It never
// fails: malformed input is reported in Result.Diagnostics and merged as
// well as possible.
func Combine(left, right []string, opts Options) *Result {
	opts = opts.withDefaults()
	res := &Result{RunID: uuid.New()}
	logger := opts.Logger.With(log.Fields{"run": res.RunID.String()})
	started := time.Now()

	report := func(err *errors.MergeError) {
		res.Diagnostics = append(res.Diagnostics, err)
		entry := logger.WithField("code", string(err.Code))
		if err.Category() == errors.CategoryStructural {
			entry.Error(err.Error())
		} else {
			entry.Warn(err.Error())
		}
	}

	useWipes := opts.UseWipes
	if useWipes {
		if id := opts.missingStation(); id != None {
			useWipes = false
			res.Degradation = &Degradation{
				Feature: "wipes",
				Reason:  "missing station",
				Head:    id.String(),
			}
			report(errors.WipeMissingError(id.String()))
		}
	}

	lp := &layer.Parser{Source: "left", Prefix: commentPrefix(Left), Remap: opts.Heads.remapInto(Left), Report: report}
	rp := &layer.Parser{Source: "right", Prefix: commentPrefix(Right), Remap: opts.Heads.remapInto(Right), Report: report}
	lr := lp.Parse(left)
	rr := rp.Parse(right)

	m := &merger{
		opts:     &opts,
		log:      logger.WithPrefix("merge"),
		report:   report,
		comments: lr.CommentsSeen || rr.CommentsSeen,
		useWipes: useWipes,
		left:     layer.NewQueue(lr.Layers),
		right:    layer.NewQueue(rr.Layers),
	}
	res.Layers = m.run()
	res.Toolchanges = m.toolchanges
	res.Lines = Assemble(res.Layers, opts.Progress)

	logger.WithFields(log.Fields{
		"left_layers":  len(lr.Layers),
		"right_layers": len(rr.Layers),
		"toolchanges":  res.Toolchanges,
		"lines":        len(res.Lines),
		"diagnostics":  len(res.Diagnostics),
		"elapsed":      time.Since(started).String(),
	}).Info("merge complete")
	return res
}

// ReadLines reads a toolpath file without line terminators.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

// CombineFiles merges two toolpath files. Only unreadable inputs fail.
func CombineFiles(leftPath, rightPath string, opts Options) (*Result, error) {
	left, err := ReadLines(leftPath)
	if err != nil {
		return nil, errors.InputError(leftPath, err)
	}
	right, err := ReadLines(rightPath)
	if err != nil {
		return nil, errors.InputError(rightPath, err)
	}
	return Combine(left, right, opts), nil
}

// WriteFile writes the merged stream of r to path.
func WriteFile(path string, r *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrRuntime, "cannot create output").SetSource(path)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrRuntime, "cannot write output").SetSource(path)
	}
	return f.Close()
}
