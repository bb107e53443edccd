package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/models"
)

const (
	coverageErrorBelow = 0.5
	coverageWarnBelow  = 0.8
)

// Coherence checks that a candidate is faithful to the story passage.
type Coherence struct {
	an      analyzer.Analyzer
	scoring Scoring
}

func NewCoherence(an analyzer.Analyzer, scoring Scoring) *Coherence {
	return &Coherence{an: an, scoring: scoring}
}

func (c *Coherence) Validate(cand models.Candidate, src *Source) models.ValidationResult {
	var f findings
	switch p := cand.Payload.(type) {
	case models.OrderSentence:
		c.sentence(p.Correct, src, &f)
		c.tokens(p.Words, src, &f)
	case models.CompleteWords:
		c.sentence(p.Filled(), src, &f)
		c.tokens([]string{p.Correct}, src, &f)
	case models.DragWords:
		c.sentence(p.Filled(), src, &f)
		c.tokens([]string{p.Correct}, src, &f)
		for _, d := range p.Distractors() {
			if src.Contains(models.Fill(p.Sentence, d)) {
				f.warnf("distractor %q also forms a sentence from the story", d)
			}
		}
	case models.MultiChoice:
		c.multiChoice(p, src, &f)
	case models.FreeWriting:
		kws := analyzer.Keywords(c.an, p.Prompt)
		if len(kws) > 0 {
			if found, _ := matchWords(kws, src); len(found) == 0 {
				f.warnf("writing prompt shares no key words with the story")
			}
		}
	default:
		f.errorf("exercise has no payload")
	}
	return f.result(c.scoring.CoherenceErrorPenalty, c.scoring.CoherenceWarningPenalty, c.scoring.WarningFloor)
}

// sentence requires the assembled sentence to appear verbatim in the story.
// When it does not, word coverage decides how bad the mismatch is.
func (c *Coherence) sentence(assembled string, src *Source, f *findings) {
	if src.Contains(assembled) {
		return
	}
	f.errorf("sentence not found in story: %q", strings.Join(strings.Fields(assembled), " "))

	var content []string
	for _, tok := range analyzer.NormalizedTokens(assembled) {
		if utf8.RuneCountInString(tok) > 2 {
			content = append(content, tok)
		}
	}
	if len(content) == 0 {
		return
	}
	found, missing := matchWords(content, src)
	ratio := float64(len(found)) / float64(len(content))
	switch {
	case ratio < coverageErrorBelow:
		f.errorf("only %.0f%% of the exercise words appear in the story, %s", ratio*100, missingList(missing))
	case ratio < coverageWarnBelow:
		f.warnf("%.0f%% of the exercise words appear in the story, %s", ratio*100, missingList(missing))
	}
}

// tokens warns about answer words the story never uses.
func (c *Coherence) tokens(words []string, src *Source, f *findings) {
	var missing []string
	seen := make(map[string]bool)
	for _, w := range words {
		for _, tok := range analyzer.NormalizedTokens(w) {
			if utf8.RuneCountInString(tok) <= 2 || seen[tok] {
				continue
			}
			seen[tok] = true
			if !src.HasWord(tok) {
				missing = append(missing, tok)
			}
		}
	}
	if len(missing) > 0 {
		f.warnf("%s", missingList(missing))
	}
}

func (c *Coherence) multiChoice(p models.MultiChoice, src *Source, f *findings) {
	correct := p.CorrectChoice()
	if correct != "" {
		kws := analyzer.Keywords(c.an, correct)
		found, missing := matchWords(kws, src)
		switch {
		case len(kws) == 0:
			f.warnf("correct choice %q has no content words to check against the story", correct)
		case len(found) == 0:
			f.errorf("correct choice %q is not supported by the story, %s", correct, missingList(missing))
		case len(missing) > 0:
			f.warnf("correct choice %q is only partly supported by the story, %s", correct, missingList(missing))
		}
	}

	for i, choice := range p.Choices {
		if i == p.CorrectIndex {
			continue
		}
		kws := analyzer.Keywords(c.an, choice)
		if len(kws) == 0 {
			continue
		}
		if _, missing := matchWords(kws, src); len(missing) == 0 {
			f.warnf("incorrect choice %q is fully supported by the story and may also be right", choice)
		}
	}
}

func matchWords(tokens []string, src *Source) (found, missing []string) {
	for _, t := range tokens {
		if src.HasWord(t) {
			found = append(found, t)
		} else {
			missing = append(missing, t)
		}
	}
	return found, missing
}

func missingList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return "words not found in story: " + strings.Join(quoted, ", ")
}
