package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/pipeline"
	"github.com/cuentos-signos/backend/internal/validation"
)

const catPassage = "El gato come pescado. El gato es negro."

func TestParseExercises(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"two", `[{"kind":"complete_words","sentence":"El gato___pescado.","correct":"come"},{"kind":"free_writing","prompt":"Escribe sobre el gato.","min_words":10}]`, 2, false},
		{"empty", `[]`, 0, true},
		{"not an array", `{"kind":"complete_words"}`, 0, true},
		{"unknown kind", `[{"kind":"crossword"}]`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExercises([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseExercises() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d exercises, got %d", tt.want, len(got))
			}
		})
	}
}

func TestJudge(t *testing.T) {
	gate, err := validation.NewGate(analyzer.New(), curriculum.Default(), validation.DefaultScoring())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	candidates := []models.Candidate{
		{Payload: models.CompleteWords{Sentence: "El gato___pescado.", Correct: "come"}},
		{Payload: models.CompleteWords{Sentence: "El perro___grande.", Correct: "es"}},
	}

	var buf bytes.Buffer
	rejected := judge(&buf, gate, candidates, catPassage, 1, false)
	if rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", rejected)
	}
	out := buf.String()
	for _, want := range []string{"#0 complete_words ACCEPTED score=100", "#1 complete_words REJECTED", "[COHERENCE] error:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}

	buf.Reset()
	judge(&buf, gate, candidates[:1], catPassage, 1, true)
	if !strings.Contains(buf.String(), `"accepted": true`) {
		t.Errorf("expected JSON verdicts, got %q", buf.String())
	}
}

func TestPrintLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := printLevels(&buf, curriculum.Default()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Primeras frases") || !strings.Contains(out, "curriculum version") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPrintCatalogAndLookup(t *testing.T) {
	c := fallback.Default()

	var buf bytes.Buffer
	if err := printCatalog(&buf, c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Completa la frase") {
		t.Errorf("expected catalog titles, got %q", buf.String())
	}

	buf.Reset()
	if err := printLookup(&buf, c, 4, models.KindDragWords); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "nearest is level 3") || !strings.Contains(buf.String(), `"kind": "drag_words"`) {
		t.Errorf("unexpected lookup output %q", buf.String())
	}

	if err := printLookup(&buf, c, 1, "crossword"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestPrintResult(t *testing.T) {
	res := &pipeline.Result{
		PassageWarnings: []string{"passage has 8 words, level 1 expects at least 30"},
		Outcomes: []pipeline.Outcome{
			{Index: 0, Kind: models.KindCompleteWords, State: models.StateAccepted, Attempts: make([]models.RegenerationAttempt, 1)},
			{Index: 1, Kind: models.KindDragWords, State: models.StatePassthroughOriginal, Attempts: make([]models.RegenerationAttempt, 3), Error: "generation failed"},
		},
	}
	var buf bytes.Buffer
	if err := printResult(&buf, res, false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{"passage: passage has 8 words", "#1 drag_words passthrough_original after 3 attempt(s)", "error: generation failed", "accepted=1 fallback=0 passthrough=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}
