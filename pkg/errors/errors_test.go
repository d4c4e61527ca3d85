// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"io/fs"
	"strings"
	"testing"
)

func TestMergeErrorFormat(t *testing.T) {
	tests := []struct {
		err  *MergeError
		want string
	}{
		{New(ErrRuntime, "boom"), "[RUNTIME] boom"},
		{New(ErrPreamble, "bad start").SetSource("left"), "[PREAMBLE] left: bad start"},
		{LayerHeightError("abc").SetSource("right").SetLine(12),
			`[LAYER_HEIGHT] right:12: unparseable layer height "abc", expected (<layer> 0.00); using 0`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		err  *MergeError
		want Category
		is   func(error) bool
	}{
		{GCodeParseError("G1 X..", "X"), CategoryParseWarning, IsParseWarning},
		{LayerHeightError("x"), CategoryParseWarning, IsParseWarning},
		{LayerStructureError("no start"), CategoryStructural, IsStructural},
		{PreambleError(0.2), CategoryStructural, IsStructural},
		{WipeMissingError("right"), CategoryDegradation, IsDegradation},
		{ConfigSectionError("wipe left"), CategoryConfig, IsConfig},
		{ConfigValidationError("a", "b", "c"), CategoryConfig, IsConfig},
	}
	for _, tt := range tests {
		if got := tt.err.Category(); got != tt.want {
			t.Errorf("%s: got category %s, want %s", tt.err.Code, got, tt.want)
		}
		if !tt.is(tt.err) {
			t.Errorf("%s: category helper returned false", tt.err.Code)
		}
	}

	if IsDegradation(stderrors.New("plain")) {
		t.Error("plain error must not match a category")
	}
	if CategoryOf("NOPE").String() != "unknown" {
		t.Error("expected unknown category")
	}
}

func TestWrapAndIs(t *testing.T) {
	err := InputError("left.gcode", fs.ErrNotExist)
	if !Is(err, ErrInput) {
		t.Error("expected ErrInput")
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("expected wrapped cause to be reachable")
	}
	if err.Source != "left.gcode" {
		t.Errorf("unexpected source %q", err.Source)
	}
	if Is(stderrors.New("plain"), ErrInput) {
		t.Error("plain error must not match")
	}
}

func TestContext(t *testing.T) {
	err := WipeMissingError("left")
	if err.Context["head"] != "left" {
		t.Errorf("unexpected context %v", err.Context)
	}
	err = New(ErrRuntime, "x").SetContext("k", 1)
	if err.Context["k"] != 1 {
		t.Errorf("unexpected context %v", err.Context)
	}
}

func TestRecoverPanic(t *testing.T) {
	if RecoverPanic(nil) != nil {
		t.Error("expected nil for no panic")
	}

	tests := []struct {
		value any
		want  string
	}{
		{"bad state", "panic: bad state"},
		{42, "panic: 42"},
		{stderrors.New("wrapped"), "wrapped"},
	}
	for _, tt := range tests {
		err := RecoverPanic(tt.value)
		if err.Code != ErrRuntime {
			t.Errorf("expected RUNTIME, got %s", err.Code)
		}
		if !strings.Contains(err.Message, tt.want) {
			t.Errorf("got %q, want %q", err.Message, tt.want)
		}
	}

	func() {
		defer func() {
			err := RecoverPanic(recover())
			if err == nil || !strings.Contains(err.Message, "index out of range") {
				t.Errorf("expected runtime error, got %v", err)
			}
		}()
		var s []int
		_ = s[3]
	}()
}
