package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/models"
)

const (
	minOrderWords  = 3
	maxOrderWords  = 15
	minOptions     = 3
	multiChoices   = 4
	minChoiceLen   = 3
	maxChoiceLen   = 100
	minBlankTokens = 3
	minAnswerLen   = 2
	minPromptWords = 3
)

// Grammar checks the internal well-formedness of a candidate without
// looking at the story.
type Grammar struct {
	an      analyzer.Analyzer
	scoring Scoring
}

func NewGrammar(an analyzer.Analyzer, scoring Scoring) *Grammar {
	return &Grammar{an: an, scoring: scoring}
}

func (g *Grammar) Validate(c models.Candidate) models.ValidationResult {
	var f findings
	switch p := c.Payload.(type) {
	case models.OrderSentence:
		g.orderSentence(p, &f)
	case models.CompleteWords:
		g.completeWords(p, &f)
	case models.DragWords:
		g.dragWords(p, &f)
	case models.MultiChoice:
		g.multiChoice(p, &f)
	case models.FreeWriting:
		g.freeWriting(p, &f)
	default:
		f.errorf("exercise has no payload")
	}
	return f.result(g.scoring.GrammarErrorPenalty, g.scoring.GrammarWarningPenalty, g.scoring.WarningFloor)
}

func (g *Grammar) orderSentence(p models.OrderSentence, f *findings) {
	if !g.an.AnalyzeSentence(p.Correct).HasVerb {
		f.errorf("correct sentence %q has no verb", p.Correct)
	}

	correctWords := analyzer.Words(p.Correct)
	if len(p.Words) != len(correctWords) {
		f.errorf("words has %d items but the correct sentence has %d words", len(p.Words), len(correctWords))
	}

	remaining := make(map[string]int, len(correctWords))
	for _, w := range correctWords {
		remaining[analyzer.Normalize(w)]++
	}
	for _, w := range p.Words {
		key := analyzer.Normalize(w)
		if key == "" {
			f.errorf("words contains an empty item")
			continue
		}
		if remaining[key] == 0 {
			f.errorf("word %q does not appear in the correct sentence", w)
			continue
		}
		remaining[key]--
	}

	if !hasTerminalPunctuation(p.Correct) {
		f.warnf("correct sentence should end with punctuation")
	}
	if len(p.Words) < minOrderWords {
		f.errorf("need at least %d words to order, got %d", minOrderWords, len(p.Words))
	}
	if len(p.Words) > maxOrderWords {
		f.warnf("%d words is long for an ordering game (max %d recommended)", len(p.Words), maxOrderWords)
	}
}

func (g *Grammar) completeWords(p models.CompleteWords, f *findings) {
	checkBlankCount(p.Sentence, f)

	answer := strings.TrimSpace(p.Correct)
	switch {
	case answer == "":
		f.errorf("correct answer is empty")
	case utf8.RuneCountInString(answer) < minAnswerLen:
		f.errorf("correct answer %q is shorter than %d characters", answer, minAnswerLen)
	}

	if !g.an.AnalyzeSentence(p.Filled()).HasVerb {
		f.errorf("sentence has no verb once the blank is filled")
	}
	if answer != "" && g.isTrivial(answer) {
		f.warnf("correct answer %q is an article or conjunction", answer)
	}

	rest := analyzer.Words(strings.ReplaceAll(p.Sentence, models.BlankMarker, " "))
	if len(rest) < minBlankTokens {
		f.errorf("sentence has only %d words besides the blank, need %d", len(rest), minBlankTokens)
	}
}

func (g *Grammar) dragWords(p models.DragWords, f *findings) {
	checkBlankCount(p.Sentence, f)
	if strings.TrimSpace(p.Correct) == "" {
		f.errorf("correct answer is empty")
	}
	if !g.an.AnalyzeSentence(p.Filled()).HasVerb {
		f.errorf("sentence has no verb once the blank is filled")
	}

	if !containsExact(p.Options, p.Correct) {
		f.errorf("correct answer %q is not among the options", p.Correct)
	}
	if len(p.Options) < minOptions {
		f.errorf("need at least %d options, got %d", minOptions, len(p.Options))
	}
	for _, d := range duplicates(p.Options) {
		f.errorf("option %q appears more than once", d)
	}

	for _, d := range p.Distractors() {
		sa := g.an.AnalyzeSentence(models.Fill(p.Sentence, d))
		if sa.HasSubject && sa.HasVerb && sa.HasComplement {
			f.warnf("distractor %q also forms a complete sentence", d)
		}
	}
}

func (g *Grammar) multiChoice(p models.MultiChoice, f *findings) {
	if !strings.HasSuffix(strings.TrimSpace(p.Question), "?") {
		f.warnf("question should end with '?'")
	}
	if len(p.Choices) != multiChoices {
		f.errorf("need exactly %d choices, got %d", multiChoices, len(p.Choices))
	}
	if p.CorrectIndex < 0 || p.CorrectIndex >= len(p.Choices) {
		f.errorf("correct_index %d is out of range", p.CorrectIndex)
	}
	for _, d := range duplicates(p.Choices) {
		f.errorf("choice %q appears more than once", d)
	}
	for _, c := range p.Choices {
		n := utf8.RuneCountInString(strings.TrimSpace(c))
		if n < minChoiceLen || n > maxChoiceLen {
			f.warnf("choice %q length %d outside [%d, %d]", c, n, minChoiceLen, maxChoiceLen)
		}
	}
}

func (g *Grammar) freeWriting(p models.FreeWriting, f *findings) {
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" {
		f.errorf("writing prompt is empty")
	} else if n := len(analyzer.Words(prompt)); n < minPromptWords {
		f.errorf("writing prompt has %d words, need at least %d", n, minPromptWords)
	}
	if p.MinWords <= 0 {
		f.warnf("min_words should be positive")
	}
}

func (g *Grammar) isTrivial(answer string) bool {
	words := analyzer.Words(answer)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !g.an.ClassifyWord(w).Trivial {
			return false
		}
	}
	return true
}

// checkBlankCount requires exactly one run of underscores, of exactly the
// marker's length.
func checkBlankCount(sentence string, f *findings) {
	blanks, run := 0, 0
	malformed := false
	flush := func() {
		switch {
		case run == 0:
		case run == len(models.BlankMarker):
			blanks++
		default:
			if !malformed {
				f.errorf("blank must be exactly %q, found a run of %d underscores", models.BlankMarker, run)
			}
			malformed = true
		}
		run = 0
	}
	for _, r := range sentence {
		if r == '_' {
			run++
			continue
		}
		flush()
	}
	flush()
	if !malformed && blanks != 1 {
		f.errorf("sentence must contain exactly one blank %q, found %d", models.BlankMarker, blanks)
	}
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// duplicates returns the values that appear more than once after
// normalization, each reported once, in first-seen order.
func duplicates(list []string) []string {
	seen := make(map[string]int, len(list))
	var out []string
	for _, v := range list {
		key := analyzer.Normalize(v)
		seen[key]++
		if seen[key] == 2 {
			out = append(out, v)
		}
	}
	return out
}
