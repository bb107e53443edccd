package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuentos-signos/backend/internal/analyzer"
	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/generator"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/validation"
)

const catPassage = "El gato come pescado. El gato es negro."

var (
	goodBlank = models.Candidate{Title: "Completa", Payload: models.CompleteWords{Sentence: "El gato___pescado.", Correct: "come"}}
	badBlank  = models.Candidate{Title: "Completa", Payload: models.CompleteWords{Sentence: "El perro___grande.", Correct: "es"}}
	fixed     = models.Candidate{Payload: models.CompleteWords{Sentence: "El gato___negro.", Correct: "es"}}
)

// stubRegen answers with a fixed candidate or error and records requests.
type stubRegen struct {
	mu       sync.Mutex
	cand     models.Candidate
	err      error
	block    bool
	requests []generator.RegenerationRequest
}

func (s *stubRegen) Regenerate(ctx context.Context, req generator.RegenerationRequest) (models.Candidate, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return models.Candidate{}, ctx.Err()
	}
	if s.err != nil {
		return models.Candidate{}, s.err
	}
	return s.cand.Clone(), nil
}

func (s *stubRegen) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubRecorder struct {
	mu   sync.Mutex
	runs []*Result
}

func (r *stubRecorder) Record(ctx context.Context, res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, res)
	return nil
}

func newPipeline(t *testing.T, regen Regenerator, catalog *fallback.Catalog, opts Options) *Pipeline {
	t.Helper()
	cur := curriculum.Default()
	gate, err := validation.NewGate(analyzer.New(), cur, validation.DefaultScoring())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if catalog == nil {
		catalog = fallback.Default()
	}
	return New(gate, regen, catalog, cur, opts, nil)
}

func emptyCatalog(t *testing.T) *fallback.Catalog {
	t.Helper()
	c, err := fallback.Parse([]byte("entries: []"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return c
}

func states(ss ...models.ExerciseState) []models.ExerciseState { return ss }

func equalStates(a, b []models.ExerciseState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestValidateAndFinalize_AcceptsFirstAttempt(t *testing.T) {
	regen := &stubRegen{cand: fixed}
	p := newPipeline(t, regen, nil, Options{})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{goodBlank}, catPassage, 1, "El gato")

	out := res.Outcomes[0]
	if out.State != models.StateAccepted {
		t.Fatalf("expected accepted, got %s", out.State)
	}
	if regen.calls() != 0 {
		t.Errorf("expected no regeneration, got %d calls", regen.calls())
	}
	if out.Verdict.PerDimension != (models.DimensionScores{Grammar: 100, Coherence: 100, Pedagogical: 100}) {
		t.Errorf("unexpected scores %+v", out.Verdict.PerDimension)
	}
	if res.Exercises[0].Payload != goodBlank.Payload {
		t.Errorf("expected the original exercise, got %+v", res.Exercises[0])
	}
	if res.Err() != nil {
		t.Errorf("expected no error, got %v", res.Err())
	}
}

func TestValidateAndFinalize_RegeneratesWithFeedback(t *testing.T) {
	regen := &stubRegen{cand: fixed}
	p := newPipeline(t, regen, nil, Options{})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "El gato")

	out := res.Outcomes[0]
	if out.State != models.StateAccepted {
		t.Fatalf("expected accepted after regeneration, got %s", out.State)
	}
	if len(out.Attempts) != 2 || out.Attempts[1].AttemptNumber != 2 {
		t.Errorf("expected acceptance on attempt 2, got %d attempts", len(out.Attempts))
	}
	want := states(models.StateGenerated, models.StateValidated, models.StateRegenerating, models.StateValidated, models.StateAccepted)
	if !equalStates(out.Transitions, want) {
		t.Errorf("expected transitions %v, got %v", want, out.Transitions)
	}

	req := regen.requests[0]
	if !strings.Contains(req.Feedback, "perro") {
		t.Errorf("expected feedback to mention perro, got %q", req.Feedback)
	}
	if req.Passage != catPassage || req.Kind != models.KindCompleteWords || req.Level.Level != 1 {
		t.Errorf("unexpected request %+v", req)
	}
	if res.Exercises[0].Payload != fixed.Payload {
		t.Errorf("expected regenerated exercise, got %+v", res.Exercises[0])
	}
}

func TestValidateAndFinalize_AlwaysRejectedFallsBack(t *testing.T) {
	regen := &stubRegen{cand: badBlank}
	p := newPipeline(t, regen, nil, Options{})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "El gato")

	out := res.Outcomes[0]
	if regen.calls() != 2 {
		t.Errorf("expected 2 regeneration calls, got %d", regen.calls())
	}
	if len(out.Attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(out.Attempts))
	}
	if out.State != models.StateFallbackApplied {
		t.Fatalf("expected fallback, got %s", out.State)
	}
	if got := res.Exercises[0].Title; got != "Completa la frase · El gato" {
		t.Errorf("unexpected fallback title %q", got)
	}
	if res.Exercises[0].Kind() != models.KindCompleteWords {
		t.Errorf("expected fallback of the same kind, got %s", res.Exercises[0].Kind())
	}
	if res.Err() != nil {
		t.Errorf("expected no error with fallback, got %v", res.Err())
	}
}

func TestValidateAndFinalize_PassthroughPropagatesGenerationError(t *testing.T) {
	regen := &stubRegen{err: generator.ErrGeneration}
	p := newPipeline(t, regen, emptyCatalog(t), Options{})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "El gato")

	out := res.Outcomes[0]
	if out.State != models.StatePassthroughOriginal {
		t.Fatalf("expected passthrough, got %s", out.State)
	}
	if res.Exercises[0].Payload != badBlank.Payload {
		t.Errorf("expected original exercise, got %+v", res.Exercises[0])
	}
	if !errors.Is(res.Err(), generator.ErrGeneration) {
		t.Errorf("expected ErrGeneration, got %v", res.Err())
	}
	if len(out.Attempts) != 3 || out.Attempts[2].Err == nil {
		t.Errorf("expected failed calls to count as attempts, got %+v", out.Attempts)
	}
}

func TestValidateAndFinalize_PassthroughWithoutErrorWhenRegenerationWorked(t *testing.T) {
	regen := &stubRegen{cand: badBlank}
	p := newPipeline(t, regen, emptyCatalog(t), Options{})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "")
	if res.Outcomes[0].State != models.StatePassthroughOriginal {
		t.Fatalf("expected passthrough, got %s", res.Outcomes[0].State)
	}
	if res.Err() != nil {
		t.Errorf("expected no error, got %v", res.Err())
	}
}

func TestValidateAndFinalize_PreservesOrder(t *testing.T) {
	regen := &stubRegen{err: errors.New("unavailable")}
	p := newPipeline(t, regen, nil, Options{Concurrency: 3})

	order := models.Candidate{Payload: models.OrderSentence{Words: []string{"negro", "El", "es", "gato"}, Correct: "El gato es negro."}}
	input := []models.Candidate{badBlank, goodBlank, order, badBlank, goodBlank}

	res := p.ValidateAndFinalize(context.Background(), input, catPassage, 1, "El gato")

	if len(res.Exercises) != len(input) {
		t.Fatalf("expected %d exercises, got %d", len(input), len(res.Exercises))
	}
	wantStates := []models.ExerciseState{
		models.StateFallbackApplied, models.StateAccepted, models.StateAccepted,
		models.StateFallbackApplied, models.StateAccepted,
	}
	for i, o := range res.Outcomes {
		if o.Index != i {
			t.Errorf("outcome %d: expected index %d, got %d", i, i, o.Index)
		}
		if o.State != wantStates[i] {
			t.Errorf("outcome %d: expected %s, got %s", i, wantStates[i], o.State)
		}
		if res.Exercises[i].Kind() != input[i].Kind() {
			t.Errorf("exercise %d: expected kind %s, got %s", i, input[i].Kind(), res.Exercises[i].Kind())
		}
	}
	if got := res.Counts()[models.StateAccepted]; got != 3 {
		t.Errorf("expected 3 accepted, got %d", got)
	}
}

func TestValidateAndFinalize_Cancelled(t *testing.T) {
	regen := &stubRegen{cand: fixed}
	p := newPipeline(t, regen, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.ValidateAndFinalize(ctx, []models.Candidate{goodBlank, badBlank}, catPassage, 1, "El gato")

	if regen.calls() != 0 {
		t.Errorf("expected no regeneration after cancel, got %d", regen.calls())
	}
	if res.Outcomes[0].State != models.StateAccepted {
		t.Errorf("expected accepted exercise kept, got %s", res.Outcomes[0].State)
	}
	if res.Outcomes[1].State != models.StateFallbackApplied {
		t.Errorf("expected fallback after cancel, got %s", res.Outcomes[1].State)
	}
}

func TestValidateAndFinalize_TimeoutCountsAsAttempt(t *testing.T) {
	regen := &stubRegen{block: true}
	p := newPipeline(t, regen, emptyCatalog(t), Options{Timeout: 20 * time.Millisecond})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "")

	out := res.Outcomes[0]
	if regen.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", regen.calls())
	}
	if out.State != models.StatePassthroughOriginal {
		t.Errorf("expected passthrough, got %s", out.State)
	}
	if !errors.Is(res.Err(), generator.ErrGeneration) {
		t.Errorf("expected timeout reported as ErrGeneration, got %v", res.Err())
	}
}

func TestValidateAndFinalize_KindChangeRejected(t *testing.T) {
	other := models.Candidate{Payload: models.FreeWriting{Prompt: "Escribe sobre el gato.", MinWords: 10}}
	regen := &stubRegen{cand: other}
	p := newPipeline(t, regen, nil, Options{MaxAttempts: 2})

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{badBlank}, catPassage, 1, "")
	out := res.Outcomes[0]
	if out.State != models.StateFallbackApplied {
		t.Fatalf("expected fallback, got %s", out.State)
	}
	if out.Attempts[1].Err == nil {
		t.Error("expected kind change recorded as a failed attempt")
	}
}

func TestValidateAndFinalize_RecordsRunAndPassageWarning(t *testing.T) {
	rec := &stubRecorder{}
	p := newPipeline(t, &stubRegen{cand: fixed}, nil, Options{}).WithRecorder(rec)

	res := p.ValidateAndFinalize(context.Background(), []models.Candidate{goodBlank}, catPassage, 1, "El gato")

	if len(rec.runs) != 1 || rec.runs[0] != res {
		t.Fatalf("expected the run recorded once, got %d", len(rec.runs))
	}
	if res.PassageWords != 8 {
		t.Errorf("expected 8 passage words, got %d", res.PassageWords)
	}
	if len(res.PassageWarnings) != 1 || !strings.Contains(res.PassageWarnings[0], "at least 30") {
		t.Errorf("expected short-passage warning, got %v", res.PassageWarnings)
	}
}

func TestValidateAndFinalize_Empty(t *testing.T) {
	p := newPipeline(t, &stubRegen{}, nil, Options{})
	res := p.ValidateAndFinalize(context.Background(), nil, catPassage, 1, "")
	if len(res.Exercises) != 0 || res.Err() != nil {
		t.Errorf("expected empty result, got %+v", res)
	}
}
