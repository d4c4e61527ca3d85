package gcode

import (
	"strconv"
	"strings"
)

// NumberFormat is the formatting policy for emitted numbers.
type NumberFormat struct {
	MaxDecimals int // digits kept after the point
	MinDecimals int // digits always printed, even when zero
}

// DefaultFormat prints up to three decimals and trims trailing zeros.
var DefaultFormat = NumberFormat{MaxDecimals: 3}

// Format renders v according to the policy. Negative zero prints as "0".
func (f NumberFormat) Format(v float64) string {
	maxd := f.MaxDecimals
	if maxd < 0 {
		maxd = 0
	}
	s := strconv.FormatFloat(v, 'f', maxd, 64)
	if maxd > 0 {
		intPart, frac, _ := strings.Cut(s, ".")
		frac = strings.TrimRight(frac, "0")
		for len(frac) < f.MinDecimals && len(frac) < maxd {
			frac += "0"
		}
		s = intPart
		if frac != "" {
			s += "." + frac
		}
	}
	if strings.TrimLeft(s, "-0.") == "" && strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	return s
}

// Word renders a letter-coded word such as "X10.5".
func (f NumberFormat) Word(letter byte, v float64) string {
	return string(letter) + f.Format(v)
}
