// Package gcode inspects single G-code lines.
//
// Inspection is lenient: a word whose numeric text does not parse is
// reported as absent and recorded in Invalid, never returned as an error.
// Nothing here interprets or executes the instructions.
package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// CommentPrefix starts a comment line in the slicer output.
const CommentPrefix = "("

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// Word is one letter-coded value of an instruction.
type Word struct {
	Letter byte
	Value  float64
	Raw    string
}

// Command is a transient parse of one instruction line.
type Command struct {
	Raw     string
	Words   []Word
	Invalid []byte // letters whose numeric text is present but did not parse
}

// IsComment reports whether the line is a comment line.
func IsComment(line string) bool {
	return strings.HasPrefix(line, CommentPrefix)
}

// Parse splits a line into letter-coded words. Parenthesised comments and
// anything after ';' are ignored. Letters are upper-cased; the first
// occurrence of a letter is the one Value reports.
func Parse(line string) *Command {
	cmd := &Command{Raw: line}

	ln := line
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = ln[:idx]
	}
	ln = reParenComment.ReplaceAllString(ln, " ")
	// An unterminated '(' comments out the rest of the line.
	if idx := strings.IndexByte(ln, '('); idx >= 0 {
		ln = ln[:idx]
	}

	for _, f := range strings.Fields(ln) {
		letter := upper(f[0])
		if letter < 'A' || letter > 'Z' {
			continue
		}
		text := f[1:]
		// A bare letter, as in "G162 X Y F2500", names an axis with no value.
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			cmd.Invalid = append(cmd.Invalid, letter)
			continue
		}
		cmd.Words = append(cmd.Words, Word{Letter: letter, Value: v, Raw: text})
	}
	return cmd
}

func upper(letter byte) byte {
	if letter >= 'a' && letter <= 'z' {
		return letter - ('a' - 'A')
	}
	return letter
}

// Value returns the value of the first word with the given letter.
func (c *Command) Value(letter byte) (float64, bool) {
	letter = upper(letter)
	for _, w := range c.Words {
		if w.Letter == letter {
			return w.Value, true
		}
	}
	return 0, false
}

// Has reports whether the letter carries a valid value.
func (c *Command) Has(letter byte) bool {
	_, ok := c.Value(letter)
	return ok
}

// Code returns the leading word ("G1", "M104") as written, or "" if the
// line carries no words.
func (c *Command) Code() string {
	if len(c.Words) == 0 {
		return ""
	}
	w := c.Words[0]
	return string(w.Letter) + w.Raw
}

// Is reports whether the leading word is letter+number. Comparison is
// numeric so "G01" is G1 and "G10" is not.
func (c *Command) Is(letter byte, number int) bool {
	if len(c.Words) == 0 {
		return false
	}
	w := c.Words[0]
	return w.Letter == upper(letter) && w.Value == float64(number)
}

// IsMotion reports whether the command is a G0 or G1 move.
func (c *Command) IsMotion() bool {
	return c.Is('G', 0) || c.Is('G', 1)
}

// InvalidLetters returns the malformed letters as a string ("XF").
func (c *Command) InvalidLetters() string {
	return string(c.Invalid)
}
