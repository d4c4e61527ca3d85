package config

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"dualstrusion-go/pkg/errors"
)

// Section provides access to a config section with access tracking.
type Section struct {
	name    string
	options map[string]string

	mu       sync.RWMutex
	accessed map[string]struct{}
}

// newSection creates a new Section.
func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{
		name:     name,
		options:  opts,
		accessed: make(map[string]struct{}),
	}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

func (s *Section) markAccessed(option string) {
	s.mu.Lock()
	s.accessed[strings.ToLower(option)] = struct{}{}
	s.mu.Unlock()
}

// GetUnusedOptions returns the options that were not accessed, sorted.
func (s *Section) GetUnusedOptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []string
	for opt := range s.options {
		if _, ok := s.accessed[opt]; !ok {
			result = append(result, opt)
		}
	}
	sort.Strings(result)
	return result
}

// HasOption checks if an option exists in this section.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// lookup returns the raw value, marking the option accessed when it exists
// or when a fallback will be used.
func (s *Section) lookup(option string, hasFallback bool) (string, bool, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		s.markAccessed(option)
		return v, true, nil
	}
	if hasFallback {
		s.markAccessed(option)
		return "", false, nil
	}
	return "", false, missingOption(s.name, option)
}

// Get returns a string option value.
// If default is provided and option doesn't exist, returns default.
// If no default and option doesn't exist, returns error.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	v, ok, err := s.lookup(option, len(fallback) > 0)
	if err != nil || ok {
		return v, err
	}
	return fallback[0], nil
}

// GetInt returns an integer option value.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	v, ok, err := s.lookup(option, len(fallback) > 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback[0], nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, invalidValue(s.name, option, v, "integer")
	}
	return i, nil
}

// GetIntWithBounds returns an integer option value with bounds checking.
func (s *Section) GetIntWithBounds(option string, minVal, maxVal *int, fallback ...int) (int, error) {
	v, err := s.GetInt(option, fallback...)
	if err != nil {
		return 0, err
	}
	if minVal != nil && v < *minVal {
		return 0, outOfRange(s.name, option, float64(v), "must have minimum of "+strconv.Itoa(*minVal))
	}
	if maxVal != nil && v > *maxVal {
		return 0, outOfRange(s.name, option, float64(v), "must have maximum of "+strconv.Itoa(*maxVal))
	}
	return v, nil
}

// GetFloat returns a float64 option value.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	v, ok, err := s.lookup(option, len(fallback) > 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback[0], nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, invalidValue(s.name, option, v, "float")
	}
	return f, nil
}

// FloatBounds specifies bounds for GetFloatWithBounds.
type FloatBounds struct {
	MinVal *float64 // minimum value (>=)
	MaxVal *float64 // maximum value (<=)
	Above  *float64 // must be above this value (>)
}

// GetFloatWithBounds returns a float64 option value with bounds checking.
func (s *Section) GetFloatWithBounds(option string, bounds FloatBounds, fallback ...float64) (float64, error) {
	v, err := s.GetFloat(option, fallback...)
	if err != nil {
		return 0, err
	}
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	if bounds.MinVal != nil && v < *bounds.MinVal {
		return 0, outOfRange(s.name, option, v, "must have minimum of "+format(*bounds.MinVal))
	}
	if bounds.MaxVal != nil && v > *bounds.MaxVal {
		return 0, outOfRange(s.name, option, v, "must have maximum of "+format(*bounds.MaxVal))
	}
	if bounds.Above != nil && v <= *bounds.Above {
		return 0, outOfRange(s.name, option, v, "must be above "+format(*bounds.Above))
	}
	return v, nil
}

// GetBool returns a boolean option value.
// Accepts: 1, true, yes, on (true) and 0, false, no, off (false).
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	v, ok, err := s.lookup(option, len(fallback) > 0)
	if err != nil {
		return false, err
	}
	if !ok {
		return fallback[0], nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, invalidValue(s.name, option, v, "boolean (true/false/yes/no/on/off/1/0)")
	}
}

// GetChoice returns a string option that must be one of the valid choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	v, err := s.Get(option, fallback...)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return c, nil
		}
	}
	return "", errors.ConfigValidationError(s.name, option,
		"'"+v+"' is not a valid choice (valid: "+strings.Join(choices, ", ")+")")
}
