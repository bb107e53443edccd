// Package validation judges exercise candidates on three dimensions
// (grammar, coherence with the story, pedagogical fit) and combines them
// into an accept/reject verdict.
package validation

import (
	"fmt"
	"math"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/models"
)

type Gate struct {
	an        analyzer.Analyzer
	scoring   Scoring
	grammar   *Grammar
	coherence *Coherence
	pedagogy  *Pedagogy
}

func NewGate(an analyzer.Analyzer, cur *curriculum.Curriculum, scoring Scoring) (*Gate, error) {
	if err := scoring.Validate(); err != nil {
		return nil, fmt.Errorf("new gate: %w", err)
	}
	return &Gate{
		an:        an,
		scoring:   scoring,
		grammar:   NewGrammar(an, scoring),
		coherence: NewCoherence(an, scoring),
		pedagogy:  NewPedagogy(an, cur, scoring),
	}, nil
}

// Prepare analyzes a passage once so it can be shared by every candidate
// of a request.
func (g *Gate) Prepare(passage string) *Source {
	return NewSource(g.an, passage)
}

// Evaluate runs all three validators and combines their scores. A candidate
// is accepted when the mean score reaches the threshold and neither grammar
// nor coherence reported an error. Evaluate is pure.
func (g *Gate) Evaluate(c models.Candidate, src *Source, level int) models.CompositeVerdict {
	gr := g.grammar.Validate(c)
	co := g.coherence.Validate(c, src)
	pr := g.pedagogy.Validate(c, level)

	mean := float64(gr.Score+co.Score+pr.Result.Score) / 3
	return models.CompositeVerdict{
		Accepted: mean >= g.scoring.AcceptThreshold && len(gr.Errors) == 0 && len(co.Errors) == 0,
		Score:    int(math.Round(mean)),
		PerDimension: models.DimensionScores{
			Grammar:     gr.Score,
			Coherence:   co.Score,
			Pedagogical: pr.Result.Score,
		},
		Grammar:     gr,
		Coherence:   co,
		Pedagogical: pr.Result,
		Alignment:   pr.Alignment,
	}
}
