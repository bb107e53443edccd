package generator

import (
	"strings"
	"testing"

	"github.com/cuentos-signos/backend/internal/models"
)

func TestAllKindsHaveSchemas(t *testing.T) {
	for _, kind := range models.AllKinds {
		if GetKindSchema(kind) == "" {
			t.Errorf("kind %q has no schema defined", kind)
		}
		if GetKindRules(kind) == "" {
			t.Errorf("kind %q has no rules defined", kind)
		}
	}
}

func TestRegenerationSystemPrompt(t *testing.T) {
	prompt := RegenerationSystemPrompt()

	required := []string{"VERBATIM", "deaf", "___", "JSON", "[GRAMMAR]", "[COHERENCE]"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildRegenerationPrompt(t *testing.T) {
	req := RegenerationRequest{
		Kind: models.KindCompleteWords,
		Level: models.CurriculumLevel{
			Level: 1, Name: "Primeras frases", Band: models.BandSimple,
			GrammarFeatures: []string{"presente", "sujeto_verbo"},
		},
		Passage:  "El gato come pescado. El gato es negro.",
		Previous: models.Candidate{Payload: models.CompleteWords{Sentence: "El perro___grande.", Correct: "es"}},
		Feedback: `[COHERENCE] error: words not found in story: "perro"`,
		Attempt:  2,
	}
	prompt := BuildRegenerationPrompt(req)

	required := []string{
		"Exercise kind: complete_words",
		"Level: 1",
		"simple",
		"presente, sujeto_verbo",
		"El gato come pescado. El gato es negro.",
		"El perro___grande.",
		`"perro"`,
		"RULES (complete_words)",
		`"sentence": "... ___ ..."`,
	}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("prompt missing %q", keyword)
		}
	}
}

func TestRulesInjectedIntoPrompt(t *testing.T) {
	for _, kind := range models.AllKinds {
		prompt := BuildRegenerationPrompt(RegenerationRequest{Kind: kind})
		firstLine := strings.Split(strings.TrimSpace(GetKindRules(kind)), "\n")[0]
		if !strings.Contains(prompt, firstLine) {
			t.Errorf("kind %q: rules not found in prompt", kind)
		}
		if got := promptKind(prompt); got != kind {
			t.Errorf("expected prompt kind %q, got %q", kind, got)
		}
	}
}
