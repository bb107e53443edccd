package models

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// FinalizeRequest carries every exercise generated for one story.
type FinalizeRequest struct {
	Passage    string      `json:"passage"`
	Level      int         `json:"level"`
	StoryTitle string      `json:"story_title"`
	Exercises  []Candidate `json:"exercises"`
}

// ValidateRequest asks for a verdict on a single exercise, without repair.
type ValidateRequest struct {
	Passage  string    `json:"passage"`
	Level    int       `json:"level"`
	Exercise Candidate `json:"exercise"`
}

// ValidationRun is the audit record of one finalize call.
type ValidationRun struct {
	ID                 string        `json:"id"`
	Level              int           `json:"level"`
	StoryTitle         string        `json:"story_title"`
	PassageFingerprint string        `json:"passage_fingerprint"`
	PassageWords       int           `json:"passage_words"`
	PassageWarnings    []string      `json:"passage_warnings,omitempty"`
	ExerciseCount      int           `json:"exercise_count"`
	AcceptedCount      int           `json:"accepted_count"`
	FallbackCount      int           `json:"fallback_count"`
	PassthroughCount   int           `json:"passthrough_count"`
	ModelUsed          *string       `json:"model_used,omitempty"`
	ErrorMessage       *string       `json:"error_message,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	Exercises          []RunExercise `json:"exercises"`
}

type RunExercise struct {
	Index       int             `json:"index"`
	Kind        Kind            `json:"kind"`
	FinalState  ExerciseState   `json:"final_state"`
	Transitions []ExerciseState `json:"transitions"`
	Exercise    json.RawMessage `json:"exercise"`
	Error       *string         `json:"error,omitempty"`
	Attempts    []AttemptRecord `json:"attempts"`
}

type AttemptRecord struct {
	AttemptNumber    int             `json:"attempt_number"`
	Accepted         *bool           `json:"accepted,omitempty"`
	CompositeScore   *int            `json:"composite_score,omitempty"`
	GrammarScore     *int            `json:"grammar_score,omitempty"`
	CoherenceScore   *int            `json:"coherence_score,omitempty"`
	PedagogicalScore *int            `json:"pedagogical_score,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Candidate        json.RawMessage `json:"candidate,omitempty"`
	GenerationError  *string         `json:"generation_error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
