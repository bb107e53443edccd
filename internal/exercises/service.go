// Package exercises exposes the validation pipeline over HTTP and keeps
// an audit trail of every finalize call.
package exercises

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuentos-signos/backend/internal/curriculum"
	"github.com/cuentos-signos/backend/internal/logger"
	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/pipeline"
	"github.com/cuentos-signos/backend/internal/validation"
	"github.com/google/uuid"
)

// MaxExercises bounds one finalize request. A story ships with a handful of
// exercises; anything larger is a client bug.
const MaxExercises = 20

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrAuditDisabled  = errors.New("audit store disabled")
)

// RunReader loads audit records. *Store satisfies it.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*models.ValidationRun, error)
}

type ValidateResponse struct {
	Verdict  models.CompositeVerdict `json:"verdict"`
	Issues   []validation.Issue      `json:"issues"`
	Feedback string                  `json:"feedback,omitempty"`
}

type Service struct {
	pipeline *pipeline.Pipeline
	gate     *validation.Gate
	cur      *curriculum.Curriculum
	runs     RunReader
	log      *logger.Logger
}

// NewService wires the HTTP layer to the pipeline. runs may be nil when the
// audit store is disabled.
func NewService(p *pipeline.Pipeline, gate *validation.Gate, cur *curriculum.Curriculum, runs RunReader, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{pipeline: p, gate: gate, cur: cur, runs: runs, log: log}
}

func (s *Service) Finalize(ctx context.Context, req models.FinalizeRequest) (*pipeline.Result, error) {
	if err := checkStory(req.Passage, req.Level); err != nil {
		return nil, err
	}
	switch n := len(req.Exercises); {
	case n == 0:
		return nil, fmt.Errorf("%w: at least one exercise is required", ErrInvalidRequest)
	case n > MaxExercises:
		return nil, fmt.Errorf("%w: %d exercises, at most %d allowed", ErrInvalidRequest, n, MaxExercises)
	}
	for i, c := range req.Exercises {
		if c.Payload == nil {
			return nil, fmt.Errorf("%w: exercise %d has no payload", ErrInvalidRequest, i)
		}
	}

	res := s.pipeline.ValidateAndFinalize(ctx, req.Exercises, req.Passage, req.Level, strings.TrimSpace(req.StoryTitle))
	if err := res.Err(); err != nil {
		s.log.Warn("finalize finished with passthrough", "run_id", res.RunID.String(), "error", err)
	}
	return res, nil
}

// Validate judges one exercise without regeneration or fallback.
func (s *Service) Validate(req models.ValidateRequest) (*ValidateResponse, error) {
	if err := checkStory(req.Passage, req.Level); err != nil {
		return nil, err
	}
	if req.Exercise.Payload == nil {
		return nil, fmt.Errorf("%w: exercise is required", ErrInvalidRequest)
	}
	v := s.gate.Evaluate(req.Exercise, s.gate.Prepare(req.Passage), req.Level)
	resp := &ValidateResponse{Verdict: v, Issues: validation.Issues(v)}
	if resp.Issues == nil {
		resp.Issues = []validation.Issue{}
	}
	if !v.Accepted {
		resp.Feedback = validation.Feedback(v)
	}
	return resp, nil
}

func (s *Service) Levels() []models.CurriculumLevel {
	return s.cur.Levels()
}

func (s *Service) Level(n int) (models.CurriculumLevel, bool) {
	return s.cur.Level(n)
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*models.ValidationRun, error) {
	if s.runs == nil {
		return nil, ErrAuditDisabled
	}
	return s.runs.GetRun(ctx, id)
}

func checkStory(passage string, level int) error {
	if strings.TrimSpace(passage) == "" {
		return fmt.Errorf("%w: passage is required", ErrInvalidRequest)
	}
	if level < 1 {
		return fmt.Errorf("%w: level must be at least 1", ErrInvalidRequest)
	}
	return nil
}
