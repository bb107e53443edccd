package validation

import (
	"github.com/cuentos-signos/backend/internal/analyzer"
)

// Source is the story passage prepared once per request: normalized text,
// its word set and the per-sentence analysis.
type Source struct {
	Text       string
	Normalized string
	Sentences  []analyzer.SentenceAnalysis
	WordCount  int

	words map[string]bool
}

func NewSource(a analyzer.Analyzer, passage string) *Source {
	norm := analyzer.Normalize(passage)
	tokens := analyzer.NormalizedTokens(passage)
	words := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		words[t] = true
	}
	return &Source{
		Text:       passage,
		Normalized: norm,
		Sentences:  a.AnalyzePassage(passage),
		WordCount:  len(tokens),
		words:      words,
	}
}

// Contains reports whether phrase occurs verbatim (after normalization).
func (s *Source) Contains(phrase string) bool {
	return analyzer.ContainsPhrase(s.Normalized, phrase)
}

// HasWord reports whether a normalized token occurs in the passage.
func (s *Source) HasWord(token string) bool {
	return s.words[token]
}
