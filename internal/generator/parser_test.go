package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/cuentos-signos/backend/internal/models"
)

func TestParseCandidate_ValidJSON(t *testing.T) {
	input := `{"kind":"complete_words","title":"Completa","sentence":"El gato___negro.","correct":"es"}`

	cand, err := ParseCandidate(models.KindCompleteWords, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	cw, ok := cand.Payload.(models.CompleteWords)
	if !ok {
		t.Fatalf("expected CompleteWords payload, got %T", cand.Payload)
	}
	if cw.Sentence != "El gato___negro." || cw.Correct != "es" {
		t.Errorf("unexpected payload %+v", cw)
	}
	if cand.Title != "Completa" {
		t.Errorf("expected title Completa, got %q", cand.Title)
	}
}

func TestParseCandidate_MarkdownFences(t *testing.T) {
	input := "```json\n" + `{"question":"¿Qué come el gato?","choices":["pescado","carne","pan","leche"],"correct_index":0}` + "\n```"

	cand, err := ParseCandidate(models.KindMultiChoice, input)
	if err != nil {
		t.Fatalf("expected no error with markdown fences, got: %v", err)
	}
	if got := cand.Payload.(models.MultiChoice).CorrectChoice(); got != "pescado" {
		t.Errorf("expected correct choice pescado, got %q", got)
	}
}

func TestParseCandidate_SurroundingText(t *testing.T) {
	input := "Aquí tienes el ejercicio:\n{\"prompt\":\"Escribe sobre el gato negro.\",\"min_words\":15}\n¡Suerte!"

	cand, err := ParseCandidate(models.KindFreeWriting, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cand.Payload.(models.FreeWriting).MinWords != 15 {
		t.Errorf("expected min_words 15, got %+v", cand.Payload)
	}
}

func TestParseCandidate_KeepsBlankMarker(t *testing.T) {
	input := `{"sentence":"La niña ___ un libro.","options":["lee","mesa","azul"],"correct":"lee"}`

	cand, err := ParseCandidate(models.KindDragWords, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if s := cand.Payload.(models.DragWords).Sentence; !strings.Contains(s, models.BlankMarker) {
		t.Errorf("expected blank marker preserved, got %q", s)
	}
}

func TestParseCandidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.Kind
		input string
	}{
		{"empty", models.KindCompleteWords, "   "},
		{"not json", models.KindCompleteWords, "lo siento, no puedo"},
		{"wrong kind", models.KindCompleteWords, `{"kind":"multi_choice","question":"¿Qué?","choices":["a"]}`},
		{"unknown kind", models.Kind("crossword"), `{"sentence":"x"}`},
		{"truncated", models.KindOrderSentence, `{"words":["El","gato"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCandidate(tt.kind, tt.input); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseCandidate_MissingFields(t *testing.T) {
	_, err := ParseCandidate(models.KindDragWords, `{"sentence":"","correct":""}`)
	if err == nil {
		t.Fatal("expected error for empty fields")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.input); got != tt.expected {
			t.Errorf("stripCodeFences(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
