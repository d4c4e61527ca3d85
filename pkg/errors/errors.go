// Unified error handling for the dualstrusion merger
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Input parsing problems. Recoverable: the merge substitutes a default.
	ErrGCodeParse  ErrorCode = "GCODE_PARSE"
	ErrLayerHeight ErrorCode = "LAYER_HEIGHT"

	// Structural assumption violations. Logged as severe, merge continues.
	ErrLayerStructure ErrorCode = "LAYER_STRUCTURE"
	ErrPreamble       ErrorCode = "PREAMBLE"

	// Configuration degradation. The affected feature is disabled.
	ErrWipeMissing ErrorCode = "WIPE_MISSING"

	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Fatal to the caller, never raised by the merge core itself
	ErrInput   ErrorCode = "INPUT"
	ErrRuntime ErrorCode = "RUNTIME"
)

// Category groups error codes by how the merge treats them.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryParseWarning
	CategoryDegradation
	CategoryStructural
	CategoryConfig
	CategoryFatal
)

// String returns the category name used in logs and API responses.
func (c Category) String() string {
	switch c {
	case CategoryParseWarning:
		return "parse_warning"
	case CategoryDegradation:
		return "configuration_degradation"
	case CategoryStructural:
		return "structural_violation"
	case CategoryConfig:
		return "config"
	case CategoryFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CategoryOf maps an error code to its category.
func CategoryOf(code ErrorCode) Category {
	switch code {
	case ErrGCodeParse, ErrLayerHeight:
		return CategoryParseWarning
	case ErrWipeMissing:
		return CategoryDegradation
	case ErrLayerStructure, ErrPreamble:
		return CategoryStructural
	case ErrConfigSection, ErrConfigOption, ErrConfigValidation, ErrConfigType:
		return CategoryConfig
	case ErrInput, ErrRuntime:
		return CategoryFatal
	default:
		return CategoryUnknown
	}
}

// MergeError is the error type shared by the merge core, the config
// loader and the service layer.
type MergeError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Source names the input the error came from ("left", "right", a path)
	Source string

	// Line is the 1-based line number in Source (0 when not applicable)
	Line int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *MergeError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("[%s] %s:%d: %s", e.Code, e.Source, e.Line, e.Message)
	case e.Source != "":
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Source, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *MergeError) Unwrap() error {
	return e.Err
}

// Category returns the category of the error code.
func (e *MergeError) Category() Category {
	return CategoryOf(e.Code)
}

// SetSource sets the input name
func (e *MergeError) SetSource(source string) *MergeError {
	e.Source = source
	return e
}

// SetLine sets the line number
func (e *MergeError) SetLine(line int) *MergeError {
	e.Line = line
	return e
}

// SetContext adds additional context
func (e *MergeError) SetContext(key string, value interface{}) *MergeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *MergeError {
	return &MergeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new MergeError
func New(code ErrorCode, message string) *MergeError {
	return &MergeError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new MergeError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MergeError {
	return New(code, fmt.Sprintf(format, args...))
}

// Input errors

// GCodeParseError reports instruction words whose numeric text is malformed.
func GCodeParseError(line string, letters string) *MergeError {
	return Newf(ErrGCodeParse, "malformed value for %s in %q; treated as absent", letters, line)
}

// LayerHeightError reports a layer marker whose height does not parse.
func LayerHeightError(token string) *MergeError {
	return Newf(ErrLayerHeight,
		"unparseable layer height %q, expected (<layer> 0.00); using 0", token).
		SetContext("token", token)
}

// LayerStructureError reports an end marker without a matching start.
func LayerStructureError(reason string) *MergeError {
	return New(ErrLayerStructure, reason)
}

// PreambleError reports an input whose first layer is not the height-0
// start block.
func PreambleError(height float64) *MergeError {
	return Newf(ErrPreamble,
		"start block did not end with </layer> (first layer height %g); use a standard start.gcode", height).
		SetContext("height", height)
}

// WipeMissingError reports a missing wipe station for a head.
func WipeMissingError(head string) *MergeError {
	return Newf(ErrWipeMissing, "no wipe station for %s head; continuing without wipes", head).
		SetContext("head", head)
}

// Config errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *MergeError {
	return Newf(ErrConfigSection, "section '%s' not found", section).
		SetContext("section", section)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *MergeError {
	return Newf(ErrConfigValidation, "option '%s' in section '%s': %s", option, section, reason).
		SetContext("section", section).
		SetContext("option", option)
}

// InputError reports an input stream the caller could not supply.
func InputError(source string, err error) *MergeError {
	return Wrap(err, ErrInput, fmt.Sprintf("cannot read input: %v", err)).SetSource(source)
}

// RuntimeError creates a general runtime error
func RuntimeError(message string) *MergeError {
	return New(ErrRuntime, message)
}

// RecoverPanic converts the value returned by recover() into a MergeError.
// A nil value yields nil.
func RecoverPanic(r interface{}) *MergeError {
	if r == nil {
		return nil
	}
	switch x := r.(type) {
	case runtime.Error:
		return RuntimeError(x.Error())
	case error:
		return Wrap(x, ErrRuntime, x.Error())
	case string:
		return RuntimeError(fmt.Sprintf("panic: %s", x))
	default:
		return RuntimeError(fmt.Sprintf("panic: %v", x))
	}
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if mergeErr, ok := err.(*MergeError); ok {
		return mergeErr.Code == code
	}
	return false
}

func isCategory(err error, c Category) bool {
	if mergeErr, ok := err.(*MergeError); ok {
		return mergeErr.Category() == c
	}
	return false
}

// IsParseWarning checks if error is a recoverable parse warning
func IsParseWarning(err error) bool {
	return isCategory(err, CategoryParseWarning)
}

// IsDegradation checks if error disabled a feature for the run
func IsDegradation(err error) bool {
	return isCategory(err, CategoryDegradation)
}

// IsStructural checks if error is a structural assumption violation
func IsStructural(err error) bool {
	return isCategory(err, CategoryStructural)
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return isCategory(err, CategoryConfig)
}
