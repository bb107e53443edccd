package models

// Band groups levels that share the same structural target.
type Band string

const (
	BandSimple      Band = "simple"      // short, single-clause sentences
	BandConnected   Band = "connected"   // coordinated clauses
	BandSubordinate Band = "subordinate" // subordinate clauses
	BandAdvanced    Band = "advanced"    // subordination plus tense variety
)

// BandOrder gives each band its position; levels must never move to a lower band.
var BandOrder = map[Band]int{
	BandSimple:      0,
	BandConnected:   1,
	BandSubordinate: 2,
	BandAdvanced:    3,
}

type WordRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

type CurriculumLevel struct {
	Level           int       `json:"level" yaml:"level"`
	Name            string    `json:"name" yaml:"name"`
	Band            Band      `json:"band" yaml:"band"`
	WordRange       WordRange `json:"word_range" yaml:"word_range"`
	GrammarFeatures []string  `json:"grammar_features" yaml:"grammar_features"`
	AllowedKinds    []Kind    `json:"allowed_kinds" yaml:"allowed_kinds"`
}

// Allows reports whether kind is planned for this level.
func (l CurriculumLevel) Allows(kind Kind) bool {
	for _, k := range l.AllowedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// FallbackEntry is a hand-verified exercise for one (level, kind) slot.
type FallbackEntry struct {
	Level     int
	Kind      Kind
	Candidate Candidate
}
