// Package pipeline finalizes the exercises of one story: every candidate is
// validated, repaired through the generation service when rejected, and
// replaced from the fallback catalog when repair fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 45 * time.Second
	DefaultConcurrency = 2
)

type Options struct {
	MaxAttempts int           // total attempts per exercise, original included
	Timeout     time.Duration // per regeneration call
	Concurrency int           // exercises finalized in parallel
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Recorder persists a finished run. Failures are logged, never returned.
type Recorder interface {
	Record(ctx context.Context, res *Result) error
}

// Result is the output of one ValidateAndFinalize call. Exercises has the
// same length and order as the input.
type Result struct {
	RunID           uuid.UUID          `json:"run_id"`
	Level           int                `json:"level"`
	StoryTitle      string             `json:"story_title"`
	Passage         string             `json:"-"`
	PassageWords    int                `json:"passage_words"`
	PassageWarnings []string           `json:"passage_warnings,omitempty"`
	Exercises       []models.Candidate `json:"exercises"`
	Outcomes        []Outcome          `json:"outcomes"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
}

// Err joins the generation failures of exercises that ended as
// passthrough. It is nil when every exercise was accepted or replaced.
func (r *Result) Err() error {
	var errs []error
	for i := range r.Outcomes {
		if err := r.Outcomes[i].Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counts tallies outcomes by final state.
func (r *Result) Counts() map[models.ExerciseState]int {
	out := make(map[models.ExerciseState]int)
	for _, o := range r.Outcomes {
		out[o.State]++
	}
	return out
}

type Pipeline struct {
	gate     *validation.Gate
	orch     *Orchestrator
	cur      *curriculum.Curriculum
	recorder Recorder
	opts     Options
	log      *logger.Logger
}

func New(gate *validation.Gate, regen Regenerator, catalog *fallback.Catalog, cur *curriculum.Curriculum, opts Options, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	opts = opts.withDefaults()
	return &Pipeline{
		gate: gate,
		orch: NewOrchestrator(gate, regen, catalog, cur, opts),
		cur:  cur,
		opts: opts,
		log:  log,
	}
}

// WithRecorder sets the audit sink for finished runs.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// ValidateAndFinalize returns one final exercise per candidate, in input
// order. Cancelling ctx stops further regeneration; exercises still in
// flight fall through to the catalog.
func (p *Pipeline) ValidateAndFinalize(ctx context.Context, candidates []models.Candidate, passage string, level int, storyTitle string) *Result {
	res := &Result{
		RunID:      uuid.New(),
		Level:      level,
		StoryTitle: storyTitle,
		Passage:    passage,
		Exercises:  make([]models.Candidate, len(candidates)),
		Outcomes:   make([]Outcome, len(candidates)),
		StartedAt:  time.Now().UTC(),
	}
	log := p.log.With("run_id", res.RunID.String(), "level", level)

	src := p.gate.Prepare(passage)
	res.PassageWords = src.WordCount
	res.PassageWarnings = p.checkPassage(level, src)
	for _, w := range res.PassageWarnings {
		log.Warn("passage check", "warning", w)
	}
	log.Info("pipeline started", "candidates", len(candidates), "passage_words", src.WordCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			res.Outcomes[i] = p.orch.Finalize(gctx, i, c, src, level, storyTitle, log)
			res.Exercises[i] = res.Outcomes[i].Exercise
			return nil
		})
	}
	_ = g.Wait()
	res.FinishedAt = time.Now().UTC()

	counts := res.Counts()
	log.Info("pipeline finished",
		"accepted", counts[models.StateAccepted],
		"fallback", counts[models.StateFallbackApplied],
		"passthrough", counts[models.StatePassthroughOriginal],
		"elapsed_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)

	if p.recorder != nil {
		if err := p.recorder.Record(context.WithoutCancel(ctx), res); err != nil {
			log.Warn("audit record failed", "error", err)
		}
	}
	return res
}

// checkPassage compares the passage against the level's word range. The
// result is informational only.
func (p *Pipeline) checkPassage(level int, src *validation.Source) []string {
	var warnings []string
	lvl, ok := p.cur.Level(level)
	if !ok {
		lvl = p.cur.Clamp(level)
		warnings = append(warnings, fmt.Sprintf("level %d outside curriculum, using level %d", level, lvl.Level))
	}
	switch {
	case src.WordCount < lvl.WordRange.Min:
		warnings = append(warnings, fmt.Sprintf("passage has %d words, level %d expects at least %d", src.WordCount, lvl.Level, lvl.WordRange.Min))
	case src.WordCount > lvl.WordRange.Max:
		warnings = append(warnings, fmt.Sprintf("passage has %d words, level %d expects at most %d", src.WordCount, lvl.Level, lvl.WordRange.Max))
	}
	return warnings
}
