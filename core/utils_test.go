package core

import "testing"

func TestRound1(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "already one decimal", in: 4.5, want: 4.5},
		{name: "half rounds up", in: 4.45, want: 4.5},
		{name: "rounds down", in: 4.44, want: 4.4},
		{name: "rounds up", in: 3.56, want: 3.6},
		{name: "whole number", in: 4.0, want: 4.0},
		{name: "lower bound", in: 1.04, want: 1.0},
		{name: "upper bound", in: 4.96, want: 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round1(tt.in); got != tt.want {
				t.Errorf("Round1(%v) = %v, want %v", tt.in, got, tt.want)
			}
			// rounding is idempotent
			if got := Round1(Round1(tt.in)); got != tt.want {
				t.Errorf("Round1(Round1(%v)) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Matemáticas  "); got != "Matemáticas" {
		t.Errorf("CleanString() = %q", got)
	}
	if got := CleanString("  ABC ", true); got != "abc" {
		t.Errorf("CleanString(lower) = %q", got)
	}
}
