package validation

import (
	"fmt"

	"github.com/cuentos-signos/backend/internal/models"
)

// Scoring holds the penalty weights and thresholds of every dimension.
// Weights may be recalibrated but faithfulness errors must weigh at least as
// much as structural errors, which weigh at least as much as a pedagogical
// misalignment.
type Scoring struct {
	GrammarErrorPenalty     int
	GrammarWarningPenalty   int
	CoherenceErrorPenalty   int
	CoherenceWarningPenalty int
	WarningFloor            int

	AlignmentCredit     int
	MisalignmentPenalty int
	PedagogyBase        int

	AcceptThreshold float64
}

func DefaultScoring() Scoring {
	return Scoring{
		GrammarErrorPenalty:     25,
		GrammarWarningPenalty:   10,
		CoherenceErrorPenalty:   30,
		CoherenceWarningPenalty: 15,
		WarningFloor:            50,
		AlignmentCredit:         20,
		MisalignmentPenalty:     15,
		PedagogyBase:            40,
		AcceptThreshold:         70,
	}
}

func (s Scoring) Validate() error {
	if s.CoherenceErrorPenalty < s.GrammarErrorPenalty {
		return fmt.Errorf("scoring: coherence error penalty %d must be >= grammar error penalty %d",
			s.CoherenceErrorPenalty, s.GrammarErrorPenalty)
	}
	if s.GrammarErrorPenalty < s.MisalignmentPenalty {
		return fmt.Errorf("scoring: grammar error penalty %d must be >= misalignment penalty %d",
			s.GrammarErrorPenalty, s.MisalignmentPenalty)
	}
	if s.AcceptThreshold < 0 || s.AcceptThreshold > 100 {
		return fmt.Errorf("scoring: accept threshold %.1f outside [0, 100]", s.AcceptThreshold)
	}
	return nil
}

// findings accumulates the messages of one validator run.
type findings struct {
	errors   []string
	warnings []string
}

func (f *findings) errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *findings) warnf(format string, args ...any) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

// result applies the shared formula: 100 when clean, a steep per-error
// penalty when errors exist, otherwise a per-warning penalty floored.
func (f *findings) result(errorPenalty, warningPenalty, floor int) models.ValidationResult {
	res := models.ValidationResult{
		IsValid:  len(f.errors) == 0,
		Score:    100,
		Errors:   append([]string{}, f.errors...),
		Warnings: append([]string{}, f.warnings...),
	}
	switch {
	case len(f.errors) > 0:
		res.Score = max(0, 100-errorPenalty*len(f.errors))
	case len(f.warnings) > 0:
		res.Score = max(floor, 100-warningPenalty*len(f.warnings))
	}
	return res
}

func clamp(lo, hi, v int) int {
	return min(hi, max(lo, v))
}
