package exercises

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cuentos-signos/backend/internal/models"
	"github.com/cuentos-signos/backend/internal/pipeline"
	"github.com/cuentos-signos/backend/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var ErrRunNotFound = errors.New("run not found")

// Store keeps the audit trail of pipeline runs. It implements
// pipeline.Recorder.
type Store struct {
	db    *sql.DB
	model string
}

func NewStore(db *sql.DB, model string) *Store {
	return &Store{db: db, model: model}
}

// Fingerprint identifies a passage without storing its text.
func Fingerprint(passage string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(passage)))
	return hex.EncodeToString(sum[:])
}

// ── Recording ───────────────────────────────────────────

func (s *Store) Record(ctx context.Context, res *pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	counts := res.Counts()
	warnings, err := json.Marshal(res.PassageWarnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	var errMsg *string
	if err := res.Err(); err != nil {
		m := err.Error()
		errMsg = &m
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO validation_runs (id, level, story_title, passage_fingerprint, passage_words,
		     passage_warnings, exercise_count, accepted_count, fallback_count, passthrough_count,
		     model_used, error_message, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		res.RunID, res.Level, res.StoryTitle, Fingerprint(res.Passage), res.PassageWords,
		warnings, len(res.Outcomes), counts[models.StateAccepted], counts[models.StateFallbackApplied],
		counts[models.StatePassthroughOriginal], nullString(s.model), errMsg, res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, o := range res.Outcomes {
		transitions, err := json.Marshal(o.Transitions)
		if err != nil {
			return fmt.Errorf("marshal transitions: %w", err)
		}
		exercise, err := json.Marshal(o.Exercise)
		if err != nil {
			return fmt.Errorf("marshal exercise %d: %w", o.Index, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_exercises (run_id, exercise_index, kind, final_state, transitions, exercise, error_message)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.RunID, o.Index, o.Kind, o.State, transitions, exercise, nullString(o.Error),
		)
		if err != nil {
			return fmt.Errorf("insert exercise %d: %w", o.Index, err)
		}

		rows, err := attemptRows(o)
		if err != nil {
			return err
		}
		for _, a := range rows {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO validation_attempts (run_id, exercise_index, attempt_number, accepted,
				     composite_score, grammar_score, coherence_score, pedagogical_score,
				     errors, warnings, candidate, generation_error)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				res.RunID, o.Index, a.AttemptNumber, a.Accepted,
				a.CompositeScore, a.GrammarScore, a.CoherenceScore, a.PedagogicalScore,
				jsonOrNil(a.Errors), jsonOrNil(a.Warnings), rawOrNil(a.Candidate), a.GenerationError,
			)
			if err != nil {
				return fmt.Errorf("insert attempt %d/%d: %w", o.Index, a.AttemptNumber, err)
			}
		}
	}

	return tx.Commit()
}

// attemptRows flattens an outcome's attempts into audit rows. Findings are
// stored in their tagged feedback form.
func attemptRows(o pipeline.Outcome) ([]models.AttemptRecord, error) {
	rows := make([]models.AttemptRecord, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		rec := models.AttemptRecord{AttemptNumber: a.AttemptNumber}
		if a.Err != nil {
			m := a.Err.Error()
			rec.GenerationError = &m
		}
		if a.Candidate != nil {
			raw, err := json.Marshal(a.Candidate)
			if err != nil {
				return nil, fmt.Errorf("marshal attempt %d candidate: %w", a.AttemptNumber, err)
			}
			rec.Candidate = raw
		}
		if v := a.Verdict; v != nil {
			accepted := v.Accepted
			rec.Accepted = &accepted
			rec.CompositeScore = intPtr(v.Score)
			rec.GrammarScore = intPtr(v.PerDimension.Grammar)
			rec.CoherenceScore = intPtr(v.PerDimension.Coherence)
			rec.PedagogicalScore = intPtr(v.PerDimension.Pedagogical)
			for _, is := range validation.Issues(*v) {
				if is.Severity == validation.SeverityError {
					rec.Errors = append(rec.Errors, is.String())
				} else {
					rec.Warnings = append(rec.Warnings, is.String())
				}
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// ── Reading ─────────────────────────────────────────────

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*models.ValidationRun, error) {
	var (
		run      models.ValidationRun
		warnings []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, level, story_title, passage_fingerprint, passage_words, passage_warnings,
		        exercise_count, accepted_count, fallback_count, passthrough_count,
		        model_used, error_message, started_at, finished_at
		 FROM validation_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Level, &run.StoryTitle, &run.PassageFingerprint, &run.PassageWords, &warnings,
		&run.ExerciseCount, &run.AcceptedCount, &run.FallbackCount, &run.PassthroughCount,
		&run.ModelUsed, &run.ErrorMessage, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := unmarshalNullable(warnings, &run.PassageWarnings); err != nil {
		return nil, fmt.Errorf("decode passage warnings: %w", err)
	}

	run.Exercises, err = s.getRunExercises(ctx, id)
	if err != nil {
		return nil, err
	}
	attempts, err := s.getAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range run.Exercises {
		run.Exercises[i].Attempts = attempts[run.Exercises[i].Index]
		if run.Exercises[i].Attempts == nil {
			run.Exercises[i].Attempts = []models.AttemptRecord{}
		}
	}
	return &run, nil
}

func (s *Store) getRunExercises(ctx context.Context, id uuid.UUID) ([]models.RunExercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_index, kind, final_state, transitions, exercise, error_message
		 FROM run_exercises WHERE run_id = $1 ORDER BY exercise_index`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run exercises: %w", err)
	}
	defer rows.Close()

	out := []models.RunExercise{}
	for rows.Next() {
		var (
			ex          models.RunExercise
			transitions []byte
			exercise    []byte
		)
		if err := rows.Scan(&ex.Index, &ex.Kind, &ex.FinalState, &transitions, &exercise, &ex.Error); err != nil {
			return nil, fmt.Errorf("scan run exercise: %w", err)
		}
		if err := json.Unmarshal(transitions, &ex.Transitions); err != nil {
			return nil, fmt.Errorf("decode transitions: %w", err)
		}
		ex.Exercise = json.RawMessage(exercise)
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *Store) getAttempts(ctx context.Context, id uuid.UUID) (map[int][]models.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_index, attempt_number, accepted, composite_score, grammar_score,
		        coherence_score, pedagogical_score, errors, warnings, candidate,
		        generation_error, created_at
		 FROM validation_attempts WHERE run_id = $1
		 ORDER BY exercise_index, attempt_number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get attempts: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.AttemptRecord)
	for rows.Next() {
		var (
			index             int
			a                 models.AttemptRecord
			errs, warns, cand []byte
		)
		if err := rows.Scan(&index, &a.AttemptNumber, &a.Accepted, &a.CompositeScore, &a.GrammarScore,
			&a.CoherenceScore, &a.PedagogicalScore, &errs, &warns, &cand,
			&a.GenerationError, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := unmarshalNullable(errs, &a.Errors); err != nil {
			return nil, fmt.Errorf("decode attempt errors: %w", err)
		}
		if err := unmarshalNullable(warns, &a.Warnings); err != nil {
			return nil, fmt.Errorf("decode attempt warnings: %w", err)
		}
		if len(cand) > 0 {
			a.Candidate = json.RawMessage(cand)
		}
		out[index] = append(out[index], a)
	}
	return out, rows.Err()
}

// ── Helpers ─────────────────────────────────────────────

func intPtr(n int) *int { return &n }

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonOrNil stores empty lists as NULL. The result must be an untyped nil,
// since the driver encodes an empty []byte as '' and JSONB rejects it.
func jsonOrNil(v []string) any {
	if len(v) == 0 {
		return nil
	}
	raw, _ := json.Marshal(v)
	return raw
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func unmarshalNullable(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
