package validation

import (
	"strings"

	"github.com/cuentos-signos/backend/internal/models"
)

// Category groups findings by what went wrong, independent of wording.
type Category string

const (
	CategoryStructural   Category = "structural"
	CategoryFaithfulness Category = "faithfulness"
	CategoryPedagogical  Category = "pedagogical"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of a verdict, tagged with its origin.
type Issue struct {
	Dimension models.Dimension `json:"dimension"`
	Category  Category         `json:"category"`
	Severity  Severity         `json:"severity"`
	Message   string           `json:"message"`
}

func (i Issue) String() string {
	return "[" + strings.ToUpper(tag(i.Dimension)) + "] " + string(i.Severity) + ": " + i.Message
}

func tag(d models.Dimension) string {
	if d == models.DimensionPedagogical {
		return "pedagogy"
	}
	return string(d)
}

func CategoryOf(d models.Dimension) Category {
	switch d {
	case models.DimensionGrammar:
		return CategoryStructural
	case models.DimensionCoherence:
		return CategoryFaithfulness
	}
	return CategoryPedagogical
}

// Issues flattens a verdict into grammar, coherence then pedagogy findings,
// errors before warnings within each dimension.
func Issues(v models.CompositeVerdict) []Issue {
	var out []Issue
	add := func(d models.Dimension, r models.ValidationResult) {
		for _, e := range r.Errors {
			out = append(out, Issue{Dimension: d, Category: CategoryOf(d), Severity: SeverityError, Message: e})
		}
		for _, w := range r.Warnings {
			out = append(out, Issue{Dimension: d, Category: CategoryOf(d), Severity: SeverityWarning, Message: w})
		}
	}
	add(models.DimensionGrammar, v.Grammar)
	add(models.DimensionCoherence, v.Coherence)
	add(models.DimensionPedagogical, v.Pedagogical)
	return out
}

// Feedback renders a verdict as the line-per-issue block sent back to the
// generation service.
func Feedback(v models.CompositeVerdict) string {
	issues := Issues(v)
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return strings.Join(lines, "\n")
}
