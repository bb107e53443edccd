package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/fallback"
	"github.com/cuentos-signos/backend/internal/generator"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/validation"
)

// Regenerator produces a replacement for a rejected candidate.
type Regenerator interface {
	Regenerate(ctx context.Context, req generator.RegenerationRequest) (models.Candidate, error)
}

// Outcome is the history and final state of one exercise.
type Outcome struct {
	Index       int                          `json:"index"`
	Kind        models.Kind                  `json:"kind"`
	State       models.ExerciseState         `json:"state"`
	Transitions []models.ExerciseState       `json:"transitions"`
	Attempts    []models.RegenerationAttempt `json:"attempts"`
	Verdict     *models.CompositeVerdict     `json:"verdict,omitempty"`
	Exercise    models.Candidate             `json:"exercise"`
	Error       string                       `json:"error,omitempty"`

	err error
}

// Err is set only when the original passed through because every
// regeneration call failed and the catalog had nothing to offer.
func (o *Outcome) Err() error { return o.err }

func (o *Outcome) enter(s models.ExerciseState) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

// Orchestrator runs the validate → regenerate → fallback state machine for
// a single exercise.
type Orchestrator struct {
	gate    *validation.Gate
	regen   Regenerator
	catalog *fallback.Catalog
	cur     *curriculum.Curriculum
	opts    Options
}

func NewOrchestrator(gate *validation.Gate, regen Regenerator, catalog *fallback.Catalog, cur *curriculum.Curriculum, opts Options) *Orchestrator {
	return &Orchestrator{gate: gate, regen: regen, catalog: catalog, cur: cur, opts: opts.withDefaults()}
}

// Finalize never fails: the worst case is the original candidate passed
// through unchanged, with Outcome.Err explaining why.
func (o *Orchestrator) Finalize(ctx context.Context, index int, original models.Candidate, src *validation.Source, level int, storyTitle string, log *logger.Logger) Outcome {
	kind := original.Kind()
	log = log.With("index", index, "kind", kind)
	out := Outcome{Index: index, Kind: kind}
	out.enter(models.StateGenerated)

	current := original
	var (
		feedback  string
		genErrs   []error
		succeeded bool
	)

	for n := 1; n <= o.opts.MaxAttempts; n++ {
		if n > 1 {
			out.enter(models.StateRegenerating)
			if err := ctx.Err(); err != nil {
				log.Warn("regeneration skipped", "attempt", n, "error", err)
				genErrs = append(genErrs, fmt.Errorf("attempt %d: %w", n, err))
				break
			}

			next, err := o.regenerate(ctx, generator.RegenerationRequest{
				Kind:     kind,
				Level:    o.cur.Clamp(level),
				Passage:  src.Text,
				Previous: current,
				Feedback: feedback,
				Attempt:  n,
			})
			if err != nil {
				log.Warn("regeneration failed", "attempt", n, "error", err)
				out.Attempts = append(out.Attempts, models.RegenerationAttempt{AttemptNumber: n, Err: err})
				genErrs = append(genErrs, fmt.Errorf("attempt %d: %w", n, err))
				continue
			}
			succeeded = true
			current = next
		}

		verdict := o.gate.Evaluate(current, src, level)
		cand := current.Clone()
		out.Attempts = append(out.Attempts, models.RegenerationAttempt{AttemptNumber: n, Candidate: &cand, Verdict: &verdict})
		out.Verdict = &verdict
		out.enter(models.StateValidated)
		log.Debug("candidate evaluated", "attempt", n, "score", verdict.Score, "accepted", verdict.Accepted)

		if verdict.Accepted {
			out.enter(models.StateAccepted)
			out.Exercise = current
			log.Info("exercise accepted", "attempt", n, "score", verdict.Score)
			return out
		}
		feedback = validation.Feedback(verdict)
	}

	out.enter(models.StateExhausted)

	fb, err := o.catalog.Select(level, kind, storyTitle)
	if err == nil {
		out.enter(models.StateFallbackApplied)
		out.Exercise = fb
		log.Info("fallback applied", "attempts", len(out.Attempts))
		return out
	}

	log.Warn("no fallback available, keeping original", "error", err)
	out.enter(models.StatePassthroughOriginal)
	out.Exercise = original
	if !succeeded && len(genErrs) > 0 {
		out.err = fmt.Errorf("exercise %d (%s): %w", index, kind, errors.Join(genErrs...))
		out.Error = out.err.Error()
	}
	return out
}

func (o *Orchestrator) regenerate(ctx context.Context, req generator.RegenerationRequest) (models.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	next, err := o.regen.Regenerate(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return models.Candidate{}, fmt.Errorf("%w: timed out after %s", generator.ErrGeneration, time.Since(start).Round(time.Millisecond))
		}
		return models.Candidate{}, err
	}
	if next.Kind() != req.Kind {
		return models.Candidate{}, fmt.Errorf("%w: expected %s exercise, got %q", generator.ErrGeneration, req.Kind, next.Kind())
	}
	return next, nil
}
