package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlankMarker is the placeholder a learner fills in. It is part of the wire
// contract with the generation service and must not change.
const BlankMarker = "___"

type Kind string

const (
	KindOrderSentence Kind = "order_sentence"
	KindCompleteWords Kind = "complete_words"
	KindDragWords     Kind = "drag_words"
	KindMultiChoice   Kind = "multi_choice"
	KindFreeWriting   Kind = "free_writing"
)

// AllKinds lists every exercise kind the games can render, in display order.
var AllKinds = []Kind{
	KindOrderSentence,
	KindCompleteWords,
	KindDragWords,
	KindMultiChoice,
	KindFreeWriting,
}

var ValidKinds = map[Kind]bool{
	KindOrderSentence: true,
	KindCompleteWords: true,
	KindDragWords:     true,
	KindMultiChoice:   true,
	KindFreeWriting:   true,
}

// Payload is the kind-specific body of an exercise. The set of
// implementations is closed to this package.
type Payload interface {
	Kind() Kind
	isPayload()
}

type OrderSentence struct {
	Words   []string `json:"words"`
	Correct string   `json:"correct"`
}

type CompleteWords struct {
	Sentence string `json:"sentence"`
	Correct  string `json:"correct"`
}

type DragWords struct {
	Sentence string   `json:"sentence"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
}

type MultiChoice struct {
	Question     string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
}

type FreeWriting struct {
	Prompt   string `json:"prompt"`
	MinWords int    `json:"min_words"`
}

func (OrderSentence) Kind() Kind { return KindOrderSentence }
func (CompleteWords) Kind() Kind { return KindCompleteWords }
func (DragWords) Kind() Kind     { return KindDragWords }
func (MultiChoice) Kind() Kind   { return KindMultiChoice }
func (FreeWriting) Kind() Kind   { return KindFreeWriting }

func (OrderSentence) isPayload() {}
func (CompleteWords) isPayload() {}
func (DragWords) isPayload()     {}
func (MultiChoice) isPayload()   {}
func (FreeWriting) isPayload()   {}

// Fill replaces the blank marker with answer. Spaces are inserted on both
// sides so "gato___pescado" still yields separate words; callers normalize
// whitespace before comparing.
func Fill(sentence, answer string) string {
	return strings.Replace(sentence, BlankMarker, " "+answer+" ", 1)
}

// Filled returns the sentence with the correct answer in place of the blank.
func (c CompleteWords) Filled() string { return Fill(c.Sentence, c.Correct) }

// Filled returns the sentence with the correct answer in place of the blank.
func (d DragWords) Filled() string { return Fill(d.Sentence, d.Correct) }

// Distractors returns every option that is not the correct answer.
func (d DragWords) Distractors() []string {
	var out []string
	for _, o := range d.Options {
		if o != d.Correct {
			out = append(out, o)
		}
	}
	return out
}

// CorrectChoice returns the choice at CorrectIndex, or "" when out of range.
func (m MultiChoice) CorrectChoice() string {
	if m.CorrectIndex < 0 || m.CorrectIndex >= len(m.Choices) {
		return ""
	}
	return m.Choices[m.CorrectIndex]
}

// Candidate is one exercise as produced by the generation service or taken
// from the fallback catalog. Title is display metadata only.
type Candidate struct {
	Title   string
	Payload Payload
}

func (c Candidate) Kind() Kind {
	if c.Payload == nil {
		return ""
	}
	return c.Payload.Kind()
}

// Clone returns a deep copy so catalog entries are never shared.
func (c Candidate) Clone() Candidate {
	out := Candidate{Title: c.Title}
	switch p := c.Payload.(type) {
	case OrderSentence:
		p.Words = append([]string(nil), p.Words...)
		out.Payload = p
	case DragWords:
		p.Options = append([]string(nil), p.Options...)
		out.Payload = p
	case MultiChoice:
		p.Choices = append([]string(nil), p.Choices...)
		out.Payload = p
	default:
		out.Payload = p
	}
	return out
}

type envelope struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title,omitempty"`
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	env := envelope{Kind: c.Kind(), Title: c.Title}
	switch p := c.Payload.(type) {
	case OrderSentence:
		return json.Marshal(struct {
			envelope
			OrderSentence
		}{env, p})
	case CompleteWords:
		return json.Marshal(struct {
			envelope
			CompleteWords
		}{env, p})
	case DragWords:
		return json.Marshal(struct {
			envelope
			DragWords
		}{env, p})
	case MultiChoice:
		return json.Marshal(struct {
			envelope
			MultiChoice
		}{env, p})
	case FreeWriting:
		return json.Marshal(struct {
			envelope
			FreeWriting
		}{env, p})
	default:
		return nil, fmt.Errorf("candidate has no payload")
	}
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decoded, err := DecodeCandidate(env.Kind, data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// DecodeCandidate decodes a flat JSON object into a candidate of the given
// kind. A "kind" field inside data, if present, must agree with kind.
func DecodeCandidate(kind Kind, data []byte) (Candidate, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Candidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	if env.Kind != "" && env.Kind != kind {
		return Candidate{}, fmt.Errorf("decode candidate: kind %q does not match expected %q", env.Kind, kind)
	}

	var (
		payload Payload
		err     error
	)
	switch kind {
	case KindOrderSentence:
		var p OrderSentence
		err = json.Unmarshal(data, &p)
		payload = p
	case KindCompleteWords:
		var p CompleteWords
		err = json.Unmarshal(data, &p)
		payload = p
	case KindDragWords:
		var p DragWords
		err = json.Unmarshal(data, &p)
		payload = p
	case KindMultiChoice:
		var p MultiChoice
		err = json.Unmarshal(data, &p)
		payload = p
	case KindFreeWriting:
		var p FreeWriting
		err = json.Unmarshal(data, &p)
		payload = p
	default:
		return Candidate{}, fmt.Errorf("decode candidate: unknown kind %q", kind)
	}
	if err != nil {
		return Candidate{}, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return Candidate{Title: env.Title, Payload: payload}, nil
}
