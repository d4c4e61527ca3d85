package config

import (
	"dualstrusion-go/pkg/errors"
	"dualstrusion-go/pkg/gcode"
	"dualstrusion-go/pkg/log"
	"dualstrusion-go/pkg/merge"
)

// Section names of a machine profile.
const (
	SectionMain       = "dualstrusion"
	SectionLeftHead   = "toolhead left"
	SectionRightHead  = "toolhead right"
	SectionLeftWipe   = "wipe left"
	SectionRightWipe  = "wipe right"
	defaultDecimals   = 3
	maxDecimals       = 6
	defaultMachineStr = "replicator"
)

// Profile is a parsed machine profile.
type Profile struct {
	Machine           merge.MachineClass
	UseWipes          bool
	PauseOnToolchange bool
	Decimals          int
	Heads             merge.Heads
	Wipes             merge.Wipes

	// Warnings lists sections and options the profile set but nothing
	// read.
	Warnings []*errors.MergeError
}

// LoadProfile reads a profile file.
func LoadProfile(path string) (*Profile, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(c)
}

// ParseProfile reads a profile from a string.
func ParseProfile(data string) (*Profile, error) {
	c, err := LoadString(data)
	if err != nil {
		return nil, err
	}
	return FromConfig(c)
}

// DefaultProfile is the profile used when none is given.
func DefaultProfile() *Profile {
	return &Profile{
		Machine:  merge.MachineReplicator,
		Decimals: defaultDecimals,
		Heads:    merge.DefaultHeads(),
	}
}

// FromConfig builds a profile from parsed sections. Every section is
// optional; a wipe section, once present, must be complete.
func FromConfig(c *Config) (*Profile, error) {
	p := DefaultProfile()

	if sec := c.GetSectionOptional(SectionMain); sec != nil {
		machine, err := sec.GetChoice("machine", merge.MachineClasses, defaultMachineStr)
		if err != nil {
			return nil, err
		}
		if p.Machine, err = merge.ParseMachineClass(machine); err != nil {
			return nil, err
		}
		if p.UseWipes, err = sec.GetBool("use_wipes", false); err != nil {
			return nil, err
		}
		if p.PauseOnToolchange, err = sec.GetBool("pause_on_toolchange", false); err != nil {
			return nil, err
		}
		minD, maxD := 1, maxDecimals
		if p.Decimals, err = sec.GetIntWithBounds("decimals", &minD, &maxD, defaultDecimals); err != nil {
			return nil, err
		}
	}

	var err error
	if p.Heads.Left, err = readHead(c, SectionLeftHead, p.Heads.Left); err != nil {
		return nil, err
	}
	if p.Heads.Right, err = readHead(c, SectionRightHead, p.Heads.Right); err != nil {
		return nil, err
	}
	if p.Heads.Left.Tool == p.Heads.Right.Tool {
		return nil, errors.ConfigValidationError(SectionRightHead, "tool", "both heads use "+p.Heads.Left.Tool)
	}
	if p.Wipes.Left, err = readWipe(c, SectionLeftWipe); err != nil {
		return nil, err
	}
	if p.Wipes.Right, err = readWipe(c, SectionRightWipe); err != nil {
		return nil, err
	}

	p.Warnings = c.Unused()
	return p, nil
}

func readHead(c *Config, name string, def merge.ToolIdentity) (merge.ToolIdentity, error) {
	sec := c.GetSectionOptional(name)
	if sec == nil {
		return def, nil
	}
	tool, err := sec.Get("tool", def.Tool)
	if err != nil {
		return def, err
	}
	if tool == "" {
		return def, errors.ConfigValidationError(name, "tool", "must not be empty")
	}
	offset, err := sec.Get("offset", def.Offset)
	if err != nil {
		return def, err
	}
	return merge.ToolIdentity{Tool: tool, Offset: offset}, nil
}

func readWipe(c *Config, name string) (*merge.WipeStation, error) {
	sec := c.GetSectionOptional(name)
	if sec == nil {
		return nil, nil
	}
	zero := 0.0
	nonNegative := FloatBounds{MinVal: &zero}

	w := &merge.WipeStation{}
	for _, f := range []struct {
		option string
		dst    *float64
		bounds FloatBounds
	}{
		{"x1", &w.X1, FloatBounds{}},
		{"y1", &w.Y1, FloatBounds{}},
		{"z1", &w.Z1, FloatBounds{}},
		{"x2", &w.X2, FloatBounds{}},
		{"y2", &w.Y2, FloatBounds{}},
		{"z2", &w.Z2, FloatBounds{}},
		{"purge_rate", &w.PurgeRate, nonNegative},
		{"purge_duration", &w.PurgeDuration, nonNegative},
		{"reverse_rate", &w.ReverseRate, nonNegative},
		{"reverse_duration", &w.ReverseDuration, nonNegative},
		{"wait", &w.Wait, nonNegative},
	} {
		v, err := sec.GetFloatWithBounds(f.option, f.bounds)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return w, nil
}

// Options maps the profile onto merge options. logger may be nil.
func (p *Profile) Options(logger *log.Logger) merge.Options {
	return merge.Options{
		Heads:             p.Heads,
		UseWipes:          p.UseWipes,
		Machine:           p.Machine,
		PauseOnToolchange: p.PauseOnToolchange,
		Wipes:             p.Wipes,
		Format:            gcode.NumberFormat{MaxDecimals: p.Decimals},
		Logger:            logger,
	}
}

// LogWarnings writes the profile warnings to logger.
func (p *Profile) LogWarnings(logger *log.Logger) {
	for _, w := range p.Warnings {
		logger.WithField("code", string(w.Code)).Warn(w.Error())
	}
}
