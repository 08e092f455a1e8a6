package legacyipc

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestModeFromRuleset(t *testing.T) {
	want := map[uint8]Mode{0: Standard, 1: Taiko, 2: Catch, 3: Mania}
	for id, mode := range want {
		got, err := ModeFromRuleset(id)
		if err != nil {
			t.Fatalf("ModeFromRuleset(%d) failed: %v", id, err)
		}
		if got != mode {
			t.Errorf("ModeFromRuleset(%d) = %v, want %v", id, got, mode)
		}
	}

	for _, id := range []uint8{4, 9, 255} {
		if _, err := ModeFromRuleset(id); !IsCalculationError(err, InvalidRuleset) {
			t.Errorf("ModeFromRuleset(%d): expected InvalidRuleset, got %v", id, err)
		}
	}
}

// recordingCalculator returns a fixed result and remembers its last call.
type recordingCalculator struct {
	rating float64
	err    error

	calls int
	file  string
	mode  Mode
	mods  uint32
}

func (c *recordingCalculator) Calculate(_ context.Context, beatmapFile string, mode Mode, mods uint32) (float64, error) {
	c.calls++
	c.file, c.mode, c.mods = beatmapFile, mode, mods
	return c.rating, c.err
}

func TestDispatcher_Dispatch(t *testing.T) {
	calc := &recordingCalculator{rating: 5.4321987}
	d := NewDispatcher(calc, &mockLogger{})

	got, err := d.Dispatch(context.Background(), RequestPayload{BeatmapFile: "a.osu", RulesetID: 1, Mods: 80})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got != 5.4321987 {
		t.Errorf("rating = %v, want unchanged 5.4321987", got)
	}
	if calc.file != "a.osu" || calc.mode != Taiko || calc.mods != 80 {
		t.Errorf("calculator called with (%q, %v, %d)", calc.file, calc.mode, calc.mods)
	}
}

func TestDispatcher_InvalidRulesetSkipsCalculator(t *testing.T) {
	calc := &recordingCalculator{rating: 1}
	d := NewDispatcher(calc, &mockLogger{})

	_, err := d.Dispatch(context.Background(), RequestPayload{BeatmapFile: "a.osu", RulesetID: 9})
	if !IsCalculationError(err, InvalidRuleset) {
		t.Errorf("expected InvalidRuleset, got %v", err)
	}
	if calc.calls != 0 {
		t.Errorf("calculator called %d times", calc.calls)
	}
}

func TestDispatcher_CalculatorErrors(t *testing.T) {
	plain := errors.New("engine crashed")

	tests := []struct {
		name string
		err  error
		kind CalculationErrorKind
	}{
		{"not found", calculationError(FileNotFound, nil), FileNotFound},
		{"parse", calculationError(ParseFailure, nil), ParseFailure},
		{"compute", calculationError(ComputeFailure, nil), ComputeFailure},
		{"untyped", plain, ComputeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(&recordingCalculator{err: tt.err}, &mockLogger{})
			_, err := d.Dispatch(context.Background(), RequestPayload{BeatmapFile: "a.osu"})
			if !IsCalculationError(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestDispatcher_NonFiniteRating(t *testing.T) {
	for _, rating := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		d := NewDispatcher(&recordingCalculator{rating: rating}, &mockLogger{})
		_, err := d.Dispatch(context.Background(), RequestPayload{BeatmapFile: "a.osu"})
		if !IsCalculationError(err, ComputeFailure) {
			t.Errorf("rating %v: expected ComputeFailure, got %v", rating, err)
		}
	}
}

func TestCalculatorFunc(t *testing.T) {
	var calc Calculator = CalculatorFunc(func(_ context.Context, _ string, mode Mode, _ uint32) (float64, error) {
		return float64(mode), nil
	})

	got, err := calc.Calculate(context.Background(), "a.osu", Mania, 0)
	if err != nil || got != 3 {
		t.Errorf("Calculate = %v, %v", got, err)
	}
}
