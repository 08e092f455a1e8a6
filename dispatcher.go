package legacyipc

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Mode is the gameplay variant a beatmap is rated for.
type Mode uint8

const (
	Standard Mode = iota
	Taiko
	Catch
	Mania
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return "Standard"
	case Taiko:
		return "Taiko"
	case Catch:
		return "Catch"
	case Mania:
		return "Mania"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ModeFromRuleset maps a wire ruleset id to a Mode. Ids outside 0..3 are
// rejected instead of falling back to a default mode.
func ModeFromRuleset(id uint8) (Mode, error) {
	if id > uint8(Mania) {
		return 0, calculationError(InvalidRuleset, errors.Errorf("ruleset id %d", id))
	}
	return Mode(id), nil
}

// Calculator is the external difficulty engine.
//
// Implementations report failures as *CalculationError with kind
// FileNotFound, ParseFailure or ComputeFailure. Any other error is treated
// as ComputeFailure. Calculate is never called concurrently by Server.
type Calculator interface {
	Calculate(ctx context.Context, beatmapFile string, mode Mode, mods uint32) (float64, error)
}

// CalculatorFunc adapts a function to the Calculator interface.
type CalculatorFunc func(ctx context.Context, beatmapFile string, mode Mode, mods uint32) (float64, error)

// Calculate calls f.
func (f CalculatorFunc) Calculate(ctx context.Context, beatmapFile string, mode Mode, mods uint32) (float64, error) {
	return f(ctx, beatmapFile, mode, mods)
}

// Dispatcher turns a decoded request into a call to the Calculator.
type Dispatcher struct {
	calculator Calculator
	logger     Logger
}

// NewDispatcher creates a Dispatcher. A nil logger selects the default logger.
func NewDispatcher(calculator Calculator, logger Logger) *Dispatcher {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Dispatcher{calculator: calculator, logger: logger}
}

// Dispatch rates the requested beatmap. The rating is returned unchanged;
// every failure is a *CalculationError.
func (d *Dispatcher) Dispatch(ctx context.Context, req RequestPayload) (float64, error) {
	mode, err := ModeFromRuleset(req.RulesetID)
	if err != nil {
		return 0, err
	}

	d.logger.Debug("calculating star rating",
		"beatmap", req.BeatmapFile, "mode", mode, "mods", req.Mods)

	rating, err := d.calculator.Calculate(ctx, req.BeatmapFile, mode, req.Mods)
	if err != nil {
		var ce *CalculationError
		if errors.As(err, &ce) {
			return 0, err
		}
		return 0, calculationError(ComputeFailure, err)
	}

	// JSON has no representation for these.
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0, calculationError(ComputeFailure, errors.Errorf("non-finite rating %v", rating))
	}

	return rating, nil
}
