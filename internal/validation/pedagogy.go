package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/models"
)

const maxSimpleWords = 8

// PedagogyReport lists what matches and what misses the level's focus.
// It is advisory: misalignment alone never rejects a candidate.
type PedagogyReport struct {
	Alignment    []string
	Misalignment []string
	Result       models.ValidationResult
}

// Pedagogy scores a candidate against the curriculum level it targets.
type Pedagogy struct {
	an      analyzer.Analyzer
	cur     *curriculum.Curriculum
	scoring Scoring
}

func NewPedagogy(an analyzer.Analyzer, cur *curriculum.Curriculum, scoring Scoring) *Pedagogy {
	return &Pedagogy{an: an, cur: cur, scoring: scoring}
}

// FocusSentence is the sentence whose structure a level is judged on.
func FocusSentence(c models.Candidate) string {
	switch p := c.Payload.(type) {
	case models.OrderSentence:
		return p.Correct
	case models.CompleteWords:
		return p.Filled()
	case models.DragWords:
		return p.Filled()
	case models.MultiChoice:
		return p.Question
	case models.FreeWriting:
		return p.Prompt
	}
	return ""
}

func (p *Pedagogy) Validate(c models.Candidate, level int) PedagogyReport {
	lvl := p.cur.Clamp(level)
	sa := p.an.AnalyzeSentence(FocusSentence(c))

	var r PedagogyReport
	if c.Payload != nil && !lvl.Allows(c.Kind()) {
		r.miss("%s is not used at level %d", c.Kind(), lvl.Level)
	}

	p.band(lvl, sa, &r)
	p.features(lvl, sa, &r)
	if cw, ok := c.Payload.(models.CompleteWords); ok {
		p.blank(lvl, cw.Correct, &r)
	}

	score := p.scoring.AlignmentCredit*len(r.Alignment) -
		p.scoring.MisalignmentPenalty*len(r.Misalignment) +
		p.scoring.PedagogyBase
	r.Result = models.ValidationResult{
		IsValid:  len(r.Misalignment) == 0,
		Score:    clamp(0, 100, score),
		Errors:   []string{},
		Warnings: append([]string{}, r.Misalignment...),
	}
	return r
}

func (p *Pedagogy) band(lvl models.CurriculumLevel, sa analyzer.SentenceAnalysis, r *PedagogyReport) {
	switch lvl.Band {
	case models.BandSimple:
		if sa.Complexity == analyzer.ComplexitySimple {
			r.align("simple sentence structure")
		} else {
			r.miss("sentence is %s, level %d expects simple sentences", sa.Complexity, lvl.Level)
		}
		if n := len(sa.Words); n <= maxSimpleWords {
			r.align("short sentence (%d words)", n)
		} else {
			r.miss("sentence has %d words, level %d expects at most %d", n, lvl.Level, maxSimpleWords)
		}
	case models.BandConnected:
		if len(sa.Connectors) > 0 {
			r.align("uses connectors: %s", strings.Join(sa.Connectors, ", "))
		} else {
			r.miss("no connector, level %d practises joining ideas", lvl.Level)
		}
		if len(sa.VerbTenses) >= 2 {
			r.align("tense variety: %s", joinTenses(sa.VerbTenses))
		}
	case models.BandSubordinate:
		if sa.Complexity == analyzer.ComplexityComplex {
			r.align("subordinate clause")
		} else {
			r.miss("no subordinate clause, level %d expects one", lvl.Level)
		}
	case models.BandAdvanced:
		if sa.Complexity == analyzer.ComplexityComplex {
			r.align("subordinate clause")
		} else {
			r.miss("no subordinate clause, level %d expects one", lvl.Level)
		}
		if len(sa.VerbTenses) >= 2 {
			r.align("tense variety: %s", joinTenses(sa.VerbTenses))
		} else {
			r.miss("level %d expects at least two verb tenses", lvl.Level)
		}
	}
}

func (p *Pedagogy) features(lvl models.CurriculumLevel, sa analyzer.SentenceAnalysis, r *PedagogyReport) {
	if len(lvl.GrammarFeatures) == 0 {
		return
	}
	matched := 0
	for _, feat := range lvl.GrammarFeatures {
		if p.hasFeature(feat, sa) {
			r.align("practises %s", feat)
			matched++
		}
	}
	if matched == 0 {
		r.miss("none of level %d's grammar focus (%s) appears", lvl.Level, strings.Join(lvl.GrammarFeatures, ", "))
	}
}

func (p *Pedagogy) hasFeature(feat string, sa analyzer.SentenceAnalysis) bool {
	switch feat {
	case curriculum.FeaturePresent:
		return slices.Contains(sa.VerbTenses, analyzer.TensePresent)
	case curriculum.FeaturePreterite:
		return slices.Contains(sa.VerbTenses, analyzer.TensePreterite)
	case curriculum.FeatureImperfect:
		return slices.Contains(sa.VerbTenses, analyzer.TenseImperfect)
	case curriculum.FeatureFuture:
		return slices.Contains(sa.VerbTenses, analyzer.TenseFuture)
	case curriculum.FeatureSubjectVerb:
		return sa.HasSubject && sa.HasVerb
	case curriculum.FeatureSubjectVerbComp:
		return sa.HasSubject && sa.HasVerb && sa.HasComplement
	case curriculum.FeatureCoordination:
		for _, c := range sa.Connectors {
			if p.an.ClassifyWord(c).Connector == analyzer.ConnectorCoordinating {
				return true
			}
		}
		return false
	case curriculum.FeatureSubordination:
		return sa.Complexity == analyzer.ComplexityComplex
	case curriculum.FeatureTenseVariety:
		return len(sa.VerbTenses) >= 2
	}
	return false
}

// blank judges the word a complete_words exercise hides.
func (p *Pedagogy) blank(lvl models.CurriculumLevel, answer string, r *PedagogyReport) {
	words := analyzer.Words(answer)
	if len(words) == 0 {
		return
	}
	infos := make([]analyzer.WordInfo, len(words))
	trivial := true
	for i, w := range words {
		infos[i] = p.an.ClassifyWord(w)
		trivial = trivial && infos[i].Trivial
	}
	if trivial {
		r.miss("blank %q is an article or conjunction", answer)
		return
	}

	has := func(pred func(analyzer.WordInfo) bool) bool {
		return slices.ContainsFunc(infos, pred)
	}
	switch lvl.Band {
	case models.BandSimple:
		if has(func(w analyzer.WordInfo) bool { return w.CommonVerb }) {
			r.align("blank %q is a basic verb", answer)
		} else {
			r.miss("blank %q is not a basic verb", answer)
		}
	case models.BandConnected:
		if has(func(w analyzer.WordInfo) bool { return w.Connector != analyzer.ConnectorNone || w.Verb }) {
			r.align("blank %q is a connector or verb", answer)
		} else {
			r.miss("blank %q is neither a connector nor a verb", answer)
		}
	case models.BandSubordinate:
		if has(func(w analyzer.WordInfo) bool { return w.Connector == analyzer.ConnectorSubordinating }) {
			r.align("blank %q is a subordinating connector", answer)
		} else {
			r.miss("blank %q is not a subordinating connector", answer)
		}
	case models.BandAdvanced:
		if has(func(w analyzer.WordInfo) bool { return w.Connector == analyzer.ConnectorSubordinating || w.Verb }) {
			r.align("blank %q is a subordinator or verb", answer)
		} else {
			r.miss("blank %q is neither a subordinator nor a verb", answer)
		}
	}
}

func (r *PedagogyReport) align(format string, args ...any) {
	r.Alignment = append(r.Alignment, fmt.Sprintf(format, args...))
}

func (r *PedagogyReport) miss(format string, args ...any) {
	r.Misalignment = append(r.Misalignment, fmt.Sprintf(format, args...))
}

func joinTenses(ts []analyzer.Tense) string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}
