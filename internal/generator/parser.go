package generator

import (
	"fmt"
	"strings"

	"github.com/cuentos-signos/backend/internal/models"
)

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseCandidate decodes a generation response into a candidate of kind.
// It only rejects output that cannot be used at all; quality is judged by
// the validation gate afterwards.
func ParseCandidate(kind models.Kind, responseBody string) (models.Candidate, error) {
	cleaned := extractObject(stripCodeFences(responseBody))
	if cleaned == "" {
		return models.Candidate{}, fmt.Errorf("empty response")
	}

	cand, err := models.DecodeCandidate(kind, []byte(cleaned))
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateShape(cand); err != nil {
		return models.Candidate{}, err
	}
	return cand, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// extractObject trims chatter before the first '{' and after the last '}'.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// validateShape rejects candidates with missing required fields.
func validateShape(c models.Candidate) error {
	var errs []string
	blank := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Sprintf("%s: empty %s", c.Kind(), field))
		}
	}

	switch p := c.Payload.(type) {
	case models.OrderSentence:
		blank("correct", p.Correct)
		if len(p.Words) == 0 {
			errs = append(errs, "order_sentence: no words")
		}
	case models.CompleteWords:
		blank("sentence", p.Sentence)
		blank("correct", p.Correct)
	case models.DragWords:
		blank("sentence", p.Sentence)
		blank("correct", p.Correct)
		if len(p.Options) == 0 {
			errs = append(errs, "drag_words: no options")
		}
	case models.MultiChoice:
		blank("question", p.Question)
		if len(p.Choices) == 0 {
			errs = append(errs, "multi_choice: no choices")
		}
	case models.FreeWriting:
		blank("prompt", p.Prompt)
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
