package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// QuestionDescriptor is one generated multiple-choice question.
type QuestionDescriptor struct {
	QuestionText string             `json:"question_text"`
	Options      []OptionDescriptor `json:"options"`
	Difficulty   string             `json:"difficulty"`
	Explanation  string             `json:"explanation"`
}

type OptionDescriptor struct {
	Letter    string `json:"letter"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type questionSet struct {
	Questions []QuestionDescriptor `json:"questions"`
}

var optionLetters = []string{"A", "B", "C", "D"}

// questionSetSchema is the structured output contract for generating count
// questions. Extra questions pass the schema and are dropped later.
func questionSetSchema(count int) *Schema {
	return &Schema{
		Name:        fmt.Sprintf("question-set-%d", count),
		Description: "A set of multiple-choice questions with exactly four options and one correct answer each",
		Definition: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"questions"},
			"properties": map[string]any{
				"questions": map[string]any{
					"type":     "array",
					"minItems": count,
					"items":    questionItemSchema,
				},
			},
		},
	}
}

var questionItemSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"question_text", "options", "difficulty", "explanation"},
	"properties": map[string]any{
		"question_text": map[string]any{"type": "string"},
		"difficulty": map[string]any{
			"type": "string",
			"enum": []string{"easy", "medium", "hard"},
		},
		"explanation": map[string]any{"type": "string"},
		"options": map[string]any{
			"type":     "array",
			"minItems": 4,
			"maxItems": 4,
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"letter", "text", "is_correct"},
				"properties": map[string]any{
					"letter":     map[string]any{"type": "string", "enum": optionLetters},
					"text":       map[string]any{"type": "string"},
					"is_correct": map[string]any{"type": "boolean"},
				},
			},
		},
	},
}

func parseQuestionSet(raw json.RawMessage) ([]QuestionDescriptor, error) {
	var set questionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode question set: %w", err)}
	}
	return set.Questions, nil
}

// salvageQuestions makes the single recovery attempt on malformed output:
// the substring from the first '[' to the last ']' is decoded as a list of
// descriptors.
func salvageQuestions(raw []byte) ([]QuestionDescriptor, error) {
	start := bytes.IndexByte(raw, '[')
	end := bytes.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, errors.New("no bracket-delimited content to salvage")
	}

	var descriptors []QuestionDescriptor
	if err := json.Unmarshal(raw[start:end+1], &descriptors); err != nil {
		return nil, fmt.Errorf("salvaged content is not a question list: %w", err)
	}
	return descriptors, nil
}

// normalizeQuestions enforces the count and per-question shape. Extra
// descriptors are dropped; options come back ordered A to D.
func normalizeQuestions(descriptors []QuestionDescriptor, count int) ([]QuestionDescriptor, error) {
	if len(descriptors) < count {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNotEnoughQuestions, len(descriptors), count)
	}
	descriptors = descriptors[:count]

	out := make([]QuestionDescriptor, 0, count)
	for i, d := range descriptors {
		n, err := normalizeQuestion(d)
		if err != nil {
			return nil, &ErrInvalidResponse{Err: fmt.Errorf("question %d: %w", i+1, err)}
		}
		out = append(out, n)
	}
	return out, nil
}

func normalizeQuestion(d QuestionDescriptor) (QuestionDescriptor, error) {
	d.QuestionText = strings.TrimSpace(d.QuestionText)
	if d.QuestionText == "" {
		return d, errors.New("question text is empty")
	}
	if len(d.Options) != len(optionLetters) {
		return d, fmt.Errorf("expected %d options, got %d", len(optionLetters), len(d.Options))
	}

	seen := make(map[string]bool, len(optionLetters))
	correct := 0
	options := make([]OptionDescriptor, len(d.Options))
	for i, o := range d.Options {
		o.Letter = strings.ToUpper(strings.TrimSpace(o.Letter))
		o.Text = strings.TrimSpace(o.Text)
		if !isOptionLetter(o.Letter) {
			return d, fmt.Errorf("invalid option letter %q", o.Letter)
		}
		if seen[o.Letter] {
			return d, fmt.Errorf("duplicate option letter %q", o.Letter)
		}
		if o.Text == "" {
			return d, fmt.Errorf("option %s has no text", o.Letter)
		}
		seen[o.Letter] = true
		if o.IsCorrect {
			correct++
		}
		options[i] = o
	}
	if correct != 1 {
		return d, fmt.Errorf("expected exactly one correct option, got %d", correct)
	}

	sort.Slice(options, func(i, j int) bool { return options[i].Letter < options[j].Letter })
	d.Options = options

	switch d.Difficulty {
	case "easy", "medium", "hard":
	default:
		d.Difficulty = "medium"
	}
	d.Explanation = strings.TrimSpace(d.Explanation)
	return d, nil
}

func isOptionLetter(letter string) bool {
	for _, l := range optionLetters {
		if l == letter {
			return true
		}
	}
	return false
}

// IsMalformed reports whether err means the service answered but its output
// could not be turned into a valid question set.
func IsMalformed(err error) bool {
	var inv *ErrInvalidResponse
	var maxTok *ErrMaxTokensExceeded
	return errors.As(err, &inv) || errors.As(err, &maxTok) || errors.Is(err, ErrNotEnoughQuestions)
}
