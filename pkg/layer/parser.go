package layer

import (
	"fmt"
	"strconv"
	"strings"

	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/gcode"
)

// Layer demarcation comments written by the slicer.
const (
	BeginMarker = "(<layer>"
	EndMarker   = "(</layer>"
)

// unsetHeight marks "no <layer> seen since the last </layer>".
const unsetHeight = -1.0

// Remap rewrites one head's identity tokens into the other head's.
type Remap struct {
	FromTool   string
	ToTool     string
	FromOffset string
	ToOffset   string
}

// Apply substitutes tool-select then offset-recall tokens. The tokens are
// opaque; empty From values are skipped.
func (r Remap) Apply(line string) string {
	if r.FromTool != "" {
		line = strings.ReplaceAll(line, r.FromTool, r.ToTool)
	}
	if r.FromOffset != "" {
		line = strings.ReplaceAll(line, r.FromOffset, r.ToOffset)
	}
	return line
}

// Reporter receives recoverable parse problems.
type Reporter func(*errors.MergeError)

// Parser turns one input stream into layers.
type Parser struct {
	// Source names the input in diagnostics ("left", "right").
	Source string
	// Prefix replaces the leading '(' of every kept comment, e.g. "(<left> ".
	Prefix string
	Remap  Remap
	Report Reporter
}

// Result is the output of Parse.
type Result struct {
	Layers []Layer
	// CommentsSeen is set once an ordinary comment was found. Without it
	// the input was stripped of comments and layer markers are not copied.
	CommentsSeen bool
}

func (p *Parser) report(err *errors.MergeError, line int) {
	if p.Report != nil {
		p.Report(err.SetSource(p.Source).SetLine(line))
	}
}

func (p *Parser) tag(line string) string {
	return p.Prefix + line[len(gcode.CommentPrefix):]
}

// Parse splits lines into layers. Content before the first </layer> is
// the start block at height 0; anything left open when the stream ends
// becomes a final layer at EndHeight. A layer still open at that point is
// reported, since its moves will be treated as end matter.
func (p *Parser) Parse(lines []string) Result {
	var (
		res    Result
		acc    []string
		height = PreambleHeight
		open   bool
	)

	for i, line := range lines {
		lineNo := i + 1
		switch {
		case strings.HasPrefix(line, EndMarker):
			if height < 0 {
				p.report(errors.LayerStructureError("end layer with no start; using height 0"), lineNo)
				height = 0
			}
			if len(acc) > 0 {
				if res.CommentsSeen {
					acc = append(acc, p.tag(line))
				}
				res.Layers = append(res.Layers, New(height, acc))
				acc = nil
			}
			height = unsetHeight
			open = false

		case strings.HasPrefix(line, BeginMarker):
			height = p.parseHeight(line, lineNo)
			open = true
			if res.CommentsSeen {
				acc = append(acc, p.tag(line))
			}

		case gcode.IsComment(line):
			acc = append(acc, p.tag(line))
			res.CommentsSeen = true

		default:
			cmd := gcode.Parse(line)
			if len(cmd.Invalid) > 0 {
				p.report(errors.GCodeParseError(line, cmd.InvalidLetters()), lineNo)
			}
			// G10 stores a position for this head and keeps its identity.
			if !cmd.Is('G', 10) {
				line = p.Remap.Apply(line)
			}
			acc = append(acc, line)
		}
	}

	if len(acc) > 0 {
		if open {
			msg := fmt.Sprintf("layer %s not closed; kept as end matter", strconv.FormatFloat(height, 'f', -1, 64))
			p.report(errors.LayerStructureError(msg), len(lines))
		}
		res.Layers = append(res.Layers, New(EndHeight, acc))
	}
	return res
}

func (p *Parser) parseHeight(line string, lineNo int) float64 {
	token := ""
	if fields := strings.Fields(line); len(fields) > 1 {
		token = strings.TrimSuffix(fields[1], ")")
	}
	h, err := strconv.ParseFloat(token, 64)
	if err != nil || h < 0 {
		p.report(errors.LayerHeightError(token), lineNo)
		return 0
	}
	return h
}
