package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuentos-signos/backend/internal/models"
)

// RegenerationRequest carries everything the generation service needs to
// repair one rejected exercise.
type RegenerationRequest struct {
	Kind     models.Kind
	Level    models.CurriculumLevel
	Passage  string
	Previous models.Candidate
	Feedback string
	Attempt  int
}

const kindLinePrefix = "Exercise kind: "

var kindSchemas = map[models.Kind]string{
	models.KindOrderSentence: `{
  "kind": "order_sentence",
  "title": "...",
  "words": ["...", "..."],
  "correct": "..."
}`,
	models.KindCompleteWords: `{
  "kind": "complete_words",
  "title": "...",
  "sentence": "... ___ ...",
  "correct": "..."
}`,
	models.KindDragWords: `{
  "kind": "drag_words",
  "title": "...",
  "sentence": "... ___ ...",
  "options": ["...", "...", "..."],
  "correct": "..."
}`,
	models.KindMultiChoice: `{
  "kind": "multi_choice",
  "title": "...",
  "question": "¿...?",
  "choices": ["...", "...", "...", "..."],
  "correct_index": 0
}`,
	models.KindFreeWriting: `{
  "kind": "free_writing",
  "title": "...",
  "prompt": "...",
  "min_words": 20
}`,
}

var kindRules = map[models.Kind]string{
	models.KindOrderSentence: `
RULES (order_sentence):
- "correct" is ONE sentence copied word for word from the story, with its final punctuation
- "words" contains exactly the words of "correct", shuffled, without punctuation
- Between 3 and 15 words`,

	models.KindCompleteWords: `
RULES (complete_words):
- "sentence" is ONE sentence copied word for word from the story with exactly one word replaced by ___
- "correct" is the removed word; filling the blank must give back the story sentence exactly
- Never blank an article (el, la, un...) or a one-letter conjunction (y, o, e, u)
- At least 3 other words must remain around the blank`,

	models.KindDragWords: `
RULES (drag_words):
- "sentence" is ONE sentence copied word for word from the story with exactly one word replaced by ___
- "options" has at least 3 different words and includes "correct"
- Distractors must NOT produce a correct or story sentence when placed in the blank`,

	models.KindMultiChoice: `
RULES (multi_choice):
- "question" ends with "?"
- Exactly 4 different choices, each between 3 and 100 characters
- The correct choice must be answerable using words that appear in the story
- Wrong choices must contradict or be absent from the story`,

	models.KindFreeWriting: `
RULES (free_writing):
- "prompt" is at least 3 words and refers to characters, places or events of the story
- "min_words" is a positive number suited to the level`,
}

func RegenerationSystemPrompt() string {
	return `You write reading exercises in Spanish for deaf children who are learning Spanish as a second language. The children read a short story and then play small games built from it.

FAITHFULNESS:
- Every sentence you use must be copied VERBATIM from the story. Do not paraphrase, do not change tense, do not invent characters, objects or events.
- Keep the original spelling, accents and punctuation of the story.

LANGUAGE:
- Use only the grammar the level asks for. Short, concrete sentences for early levels.
- Vocabulary must come from the story.

BLANKS:
- A blank is written as exactly three underscores: ___

You receive a previous exercise that was rejected and the list of problems found. Fix every [GRAMMAR] and [COHERENCE] error; address warnings when possible.

You must respond with one JSON object only. No markdown, no explanation outside the JSON.`
}

// BuildRegenerationPrompt renders the user turn for one regeneration call.
func BuildRegenerationPrompt(req RegenerationRequest) string {
	previous, err := json.MarshalIndent(req.Previous, "", "  ")
	if err != nil {
		previous = []byte("(unavailable)")
	}

	lvl := req.Level
	var features string
	if len(lvl.GrammarFeatures) > 0 {
		features = strings.Join(lvl.GrammarFeatures, ", ")
	} else {
		features = "none"
	}

	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		feedback = "(no details)"
	}

	return fmt.Sprintf(`Rewrite the rejected exercise below.

%s%s
Level: %d (%s)
Sentence structure for this level: %s
Grammar focus: %s
Attempt: %d

STORY (copy sentences from here verbatim):
"""
%s
"""

PREVIOUS EXERCISE (rejected):
%s

PROBLEMS FOUND:
%s
%s

Respond with this exact JSON structure:
%s`,
		kindLinePrefix, req.Kind,
		lvl.Level, lvl.Name,
		lvl.Band,
		features,
		req.Attempt,
		strings.TrimSpace(req.Passage),
		previous,
		feedback,
		kindRules[req.Kind],
		kindSchemas[req.Kind])
}

// GetKindSchema returns the JSON shape the service must answer with.
func GetKindSchema(kind models.Kind) string {
	return kindSchemas[kind]
}

// GetKindRules returns the construction rules injected for kind.
func GetKindRules(kind models.Kind) string {
	return kindRules[kind]
}

// promptKind recovers the exercise kind from a rendered user prompt.
func promptKind(userPrompt string) models.Kind {
	for _, line := range strings.Split(userPrompt, "\n") {
		if rest, ok := strings.CutPrefix(line, kindLinePrefix); ok {
			return models.Kind(strings.TrimSpace(rest))
		}
	}
	return ""
}
