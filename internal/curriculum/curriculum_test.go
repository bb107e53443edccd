package curriculum

import (
	"strings"
	"testing"

	"github.com/cuentos-signos/backend/internal/models"
)

func TestDefaultCurriculum(t *testing.T) {
	c := Default()

	if c.MaxLevel() != 10 {
		t.Fatalf("expected 10 levels, got %d", c.MaxLevel())
	}

	l1, ok := c.Level(1)
	if !ok {
		t.Fatal("expected level 1")
	}
	if l1.Band != models.BandSimple {
		t.Errorf("expected level 1 band simple, got %s", l1.Band)
	}
	if !l1.Allows(models.KindCompleteWords) {
		t.Error("expected level 1 to allow complete_words")
	}
	if l1.Allows(models.KindFreeWriting) {
		t.Error("expected level 1 not to allow free_writing")
	}

	wantBands := map[int]models.Band{
		2: models.BandSimple, 3: models.BandConnected, 4: models.BandConnected,
		5: models.BandSubordinate, 7: models.BandSubordinate, 8: models.BandAdvanced, 10: models.BandAdvanced,
	}
	for level, band := range wantBands {
		l, _ := c.Level(level)
		if l.Band != band {
			t.Errorf("level %d: expected band %s, got %s", level, band, l.Band)
		}
	}
}

func TestLevel_OutOfRange(t *testing.T) {
	c := Default()
	if _, ok := c.Level(0); ok {
		t.Error("expected level 0 to be missing")
	}
	if _, ok := c.Level(11); ok {
		t.Error("expected level 11 to be missing")
	}
	if got := c.Clamp(-3).Level; got != 1 {
		t.Errorf("expected Clamp(-3) = 1, got %d", got)
	}
	if got := c.Clamp(42).Level; got != 10 {
		t.Errorf("expected Clamp(42) = 10, got %d", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "levels: []", "no levels"},
		{"gap", `
levels:
  - {level: 1, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words]}
  - {level: 3, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words]}
`, "without gaps"},
		{"band decreases", `
levels:
  - {level: 1, band: connected, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words]}
  - {level: 2, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words]}
`, "lower than"},
		{"unknown kind", `
levels:
  - {level: 1, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [crossword]}
`, "unknown kind"},
		{"unknown feature", `
levels:
  - {level: 1, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words], grammar_features: [subjuntivo]}
`, "unknown grammar feature"},
		{"bad range", `
levels:
  - {level: 1, band: simple, word_range: {min: 9, max: 2}, allowed_kinds: [complete_words]}
`, "invalid word range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_SortsLevels(t *testing.T) {
	c, err := Parse([]byte(`
version: 7
levels:
  - {level: 2, band: connected, word_range: {min: 1, max: 2}, allowed_kinds: [drag_words]}
  - {level: 1, band: simple, word_range: {min: 1, max: 2}, allowed_kinds: [complete_words]}
`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Version() != 7 {
		t.Errorf("expected version 7, got %d", c.Version())
	}
	if l, _ := c.Level(2); l.Band != models.BandConnected {
		t.Errorf("expected level 2 connected, got %s", l.Band)
	}
}
