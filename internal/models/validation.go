package models

type Dimension string

const (
	DimensionGrammar     Dimension = "grammar"
	DimensionCoherence   Dimension = "coherence"
	DimensionPedagogical Dimension = "pedagogical"
)

// ValidationResult is one validator's judgement of one candidate. Errors
// block acceptance; warnings only lower the score.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Score    int      `json:"score"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type DimensionScores struct {
	Grammar     int `json:"grammar"`
	Coherence   int `json:"coherence"`
	Pedagogical int `json:"pedagogical"`
}

// CompositeVerdict is the gate decision for one candidate.
type CompositeVerdict struct {
	Accepted     bool             `json:"accepted"`
	Score        int              `json:"score"`
	PerDimension DimensionScores  `json:"per_dimension"`
	Grammar      ValidationResult `json:"grammar"`
	Coherence    ValidationResult `json:"coherence"`
	Pedagogical  ValidationResult `json:"pedagogical"`
	Alignment    []string         `json:"alignment,omitempty"`
}

// RegenerationAttempt lives only inside one orchestrator loop. Err is set
// when the generation service failed and no candidate was produced.
type RegenerationAttempt struct {
	AttemptNumber int               `json:"attempt_number"`
	Candidate     *Candidate        `json:"candidate,omitempty"`
	Verdict       *CompositeVerdict `json:"verdict,omitempty"`
	Err           error             `json:"-"`
}

// ExerciseState is a node of the per-exercise state machine.
type ExerciseState string

const (
	StateGenerated           ExerciseState = "generated"
	StateValidated           ExerciseState = "validated"
	StateAccepted            ExerciseState = "accepted"
	StateRegenerating        ExerciseState = "regenerating"
	StateExhausted           ExerciseState = "exhausted"
	StateFallbackApplied     ExerciseState = "fallback_applied"
	StatePassthroughOriginal ExerciseState = "passthrough_original"
)
