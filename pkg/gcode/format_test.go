package gcode

import "testing"

func TestNumberFormat(t *testing.T) {
	tests := []struct {
		format NumberFormat
		value  float64
		want   string
	}{
		{DefaultFormat, 0.2, "0.2"},
		{DefaultFormat, 3000, "3000"},
		{DefaultFormat, -70, "-70"},
		{DefaultFormat, 10.12345, "10.123"},
		{DefaultFormat, -0.0001, "0"},
		{NumberFormat{MaxDecimals: 3, MinDecimals: 1}, 3000, "3000.0"},
		{NumberFormat{MaxDecimals: 3, MinDecimals: 2}, 1.5, "1.50"},
		{NumberFormat{MaxDecimals: 0}, 2.6, "3"},
	}
	for _, tt := range tests {
		if got := tt.format.Format(tt.value); got != tt.want {
			t.Errorf("%+v.Format(%v) = %q, want %q", tt.format, tt.value, got, tt.want)
		}
	}
}

func TestNumberFormatWord(t *testing.T) {
	if got := DefaultFormat.Word('F', 1800); got != "F1800" {
		t.Errorf("expected F1800, got %q", got)
	}
}
