// Package analyzer detects sentence-level grammatical features in Spanish
// text with lexicons and inflection patterns. It does no part-of-speech
// tagging; callers that need a real morphological analyzer can supply their
// own Analyzer.
package analyzer

import (
	"strings"
	"unicode/utf8"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityCompound Complexity = "compound"
	ComplexityComplex  Complexity = "complex"
)

// SentenceAnalysis is derived once per sentence and never mutated.
type SentenceAnalysis struct {
	Sentence      string     `json:"sentence"`
	Words         []string   `json:"words"`
	HasSubject    bool       `json:"has_subject"`
	HasVerb       bool       `json:"has_verb"`
	HasComplement bool       `json:"has_complement"`
	Connectors    []string   `json:"connectors"`
	VerbTenses    []Tense    `json:"verb_tenses"`
	Complexity    Complexity `json:"complexity"`
}

// WordInfo classifies a single token.
type WordInfo struct {
	Folded     string
	Article    bool
	Pronoun    bool
	Connector  ConnectorType
	Verb       bool
	Tense      Tense
	CommonVerb bool
	Trivial    bool
	StopWord   bool
}

// Analyzer is the seam between validators and the linguistic heuristics.
type Analyzer interface {
	AnalyzeSentence(text string) SentenceAnalysis
	AnalyzePassage(passage string) []SentenceAnalysis
	ClassifyWord(word string) WordInfo
}

// LexiconAnalyzer is the default Analyzer backed by the static lexicons in
// lexicon.go. It holds no state and is safe for concurrent use.
type LexiconAnalyzer struct{}

func New() *LexiconAnalyzer {
	return &LexiconAnalyzer{}
}

// SplitSentences splits on '.', '!' and '?', trimming and dropping empty pieces.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(Words(p)) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Words tokenizes on whitespace and strips edge punctuation, dropping
// tokens that were punctuation only. Case is preserved.
func Words(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		w := strings.TrimFunc(f, isEdgePunct)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func (a *LexiconAnalyzer) AnalyzePassage(passage string) []SentenceAnalysis {
	sentences := SplitSentences(passage)
	out := make([]SentenceAnalysis, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, a.AnalyzeSentence(s))
	}
	return out
}

func (a *LexiconAnalyzer) AnalyzeSentence(text string) SentenceAnalysis {
	words := Words(text)
	sa := SentenceAnalysis{
		Sentence:   strings.TrimSpace(text),
		Words:      words,
		Complexity: ComplexitySimple,
	}

	seenTense := make(map[Tense]bool)
	subordinate := false
	firstVerb := -1

	for i, w := range words {
		info := a.ClassifyWord(w)
		if info.Article || info.Pronoun {
			sa.HasSubject = true
		}
		if info.Connector != ConnectorNone {
			sa.Connectors = append(sa.Connectors, info.Folded)
			if info.Connector == ConnectorSubordinating {
				subordinate = true
			}
		}
		if info.Verb {
			sa.HasVerb = true
			if firstVerb < 0 {
				firstVerb = i
			}
			if !seenTense[info.Tense] {
				seenTense[info.Tense] = true
				sa.VerbTenses = append(sa.VerbTenses, info.Tense)
			}
		}
	}

	if firstVerb >= 0 {
		for _, w := range words[firstVerb+1:] {
			if a.ClassifyWord(w).Connector == ConnectorNone {
				sa.HasComplement = true
				break
			}
		}
	}

	switch {
	case subordinate:
		sa.Complexity = ComplexityComplex
	case len(sa.Connectors) > 0:
		sa.Complexity = ComplexityCompound
	}
	return sa
}

func (a *LexiconAnalyzer) ClassifyWord(word string) WordInfo {
	lower := trimWord(word)
	folded := Normalize(lower)
	info := WordInfo{
		Folded:  folded,
		Article: articles[folded],
		Pronoun: personalPronouns[folded],
		Trivial: trivialWords[folded],
	}
	// Connectors match on the accented form: "que" links clauses, "qué" asks.
	switch {
	case subordinatingConnectors[lower]:
		info.Connector = ConnectorSubordinating
	case coordinatingConnectors[lower]:
		info.Connector = ConnectorCoordinating
	}
	info.StopWord = info.Article || info.Pronoun || info.Connector != ConnectorNone ||
		prepositions[folded] || otherStopWords[folded] || interrogatives[lower]

	if tense, ok := commonVerbs[folded]; ok {
		info.Verb, info.Tense, info.CommonVerb = true, tense, true
		return info
	}
	if info.Article || info.Pronoun || info.Connector != ConnectorNone || interrogatives[lower] ||
		prepositions[folded] || nounExceptions[folded] {
		return info
	}
	if tense, ok := matchSuffix(lower); ok {
		info.Verb, info.Tense = true, tense
	}
	return info
}

func matchSuffix(lower string) (Tense, bool) {
	n := utf8.RuneCountInString(lower)
	for _, rule := range suffixRules {
		if !strings.HasSuffix(lower, rule.suffix) {
			continue
		}
		if n-utf8.RuneCountInString(rule.suffix) < minStem {
			continue
		}
		if (rule.suffix == "an" || rule.suffix == "en") && n < presentPluralMinLen {
			continue
		}
		return rule.tense, true
	}
	return "", false
}

// Keywords returns the distinct content words of text: normalized tokens
// longer than two letters that are not stop words, in order of appearance.
func Keywords(a Analyzer, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range NormalizedTokens(text) {
		if utf8.RuneCountInString(tok) <= 2 || seen[tok] {
			continue
		}
		if a.ClassifyWord(tok).StopWord {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func isEdgePunct(r rune) bool {
	return strings.ContainsRune(".,;:!?¿¡\"'()[]«»…-—", r)
}
