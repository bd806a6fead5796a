package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// rawQuestion accepts every question shape the gateway has been seen to return.
type rawQuestion struct {
	Type          string            `json:"type"`
	QuestionType  string            `json:"question_type"`
	Text          string            `json:"text"`
	Question      string            `json:"question"`
	Options       []json.RawMessage `json:"options"`
	Choices       []json.RawMessage `json:"choices"`
	CorrectAnswer interface{}       `json:"correct_answer"`
	Points        interface{}       `json:"points"`
	Explanation   string            `json:"explanation"`
	Feedback      string            `json:"feedback"`
	Rationale     string            `json:"rationale"`
}

type rawOption struct {
	Text        string      `json:"text"`
	Option      string      `json:"option"`
	Label       string      `json:"label"`
	IsCorrect   interface{} `json:"is_correct"`
	Correct     interface{} `json:"correct"`
	IsCorrectCC interface{} `json:"isCorrect"`
	Explanation string      `json:"explanation"`
	Feedback    string      `json:"feedback"`
	Rationale   string      `json:"rationale"`
}

// NormalizeQuestions converts loose gateway question objects into the single
// models.Question shape. Structural rules (correct option counts and so on)
// are left to the validator.
func NormalizeQuestions(raws []json.RawMessage) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(raws))
	for i, raw := range raws {
		var rq rawQuestion
		if err := json.Unmarshal(raw, &rq); err != nil {
			return nil, newError(ErrKindMalformed, fmt.Sprintf("question %d is not an object", i), err)
		}
		q, err := normalizeQuestion(rq)
		if err != nil {
			return nil, newError(ErrKindMalformed, fmt.Sprintf("question %d: %v", i, err), nil)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func normalizeQuestion(rq rawQuestion) (models.Question, error) {
	text := firstNonEmpty(rq.Text, rq.Question)
	if text == "" {
		return models.Question{}, fmt.Errorf("missing question text")
	}

	rawOpts := rq.Options
	if len(rawOpts) == 0 {
		rawOpts = rq.Choices
	}
	options, err := normalizeOptions(rawOpts)
	if err != nil {
		return models.Question{}, err
	}

	q := models.Question{
		Type:        normalizeType(firstNonEmpty(rq.Type, rq.QuestionType), len(options) > 0),
		Text:        text,
		Points:      normalizePoints(rq.Points),
		Explanation: optionalString(firstNonEmpty(rq.Explanation, rq.Feedback, rq.Rationale)),
	}

	switch q.Type {
	case models.TrueFalse:
		q.Options = normalizeTrueFalse(options, rq.CorrectAnswer)
	case models.MultipleChoice:
		if !anyCorrect(options) {
			markCorrect(options, rq.CorrectAnswer)
		}
		q.Options = options
	default:
		q.Options = nil
	}
	return q, nil
}

func normalizeType(t string, hasOptions bool) models.QuestionType {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(t)))
	switch key {
	case "multiplechoice", "multichoice", "mcq", "choice":
		return models.MultipleChoice
	case "truefalse", "tf", "boolean":
		return models.TrueFalse
	case "shortanswer", "short", "open", "essay", "text":
		return models.ShortAnswer
	}
	if hasOptions {
		return models.MultipleChoice
	}
	return models.ShortAnswer
}

func normalizeOptions(raws []json.RawMessage) ([]models.Option, error) {
	options := make([]models.Option, 0, len(raws))
	for i, raw := range raws {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			options = append(options, models.Option{Text: strings.TrimSpace(s)})
			continue
		}

		var ro rawOption
		if err := json.Unmarshal(raw, &ro); err != nil {
			return nil, fmt.Errorf("option %d has an unsupported shape", i)
		}
		opt := models.Option{
			Text:        strings.TrimSpace(firstNonEmpty(ro.Text, ro.Option, ro.Label)),
			Explanation: optionalString(firstNonEmpty(ro.Explanation, ro.Feedback, ro.Rationale)),
		}
		for _, flag := range []interface{}{ro.IsCorrect, ro.Correct, ro.IsCorrectCC} {
			if v, ok := models.ParseBoolAnswer(flag); ok {
				opt.IsCorrect = v
				break
			}
		}
		options = append(options, opt)
	}
	return options, nil
}

// markCorrect applies a positional or textual correct_answer to the options.
func markCorrect(options []models.Option, answer interface{}) {
	idx := -1
	switch v := answer.(type) {
	case float64:
		idx = int(v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			idx = n
		} else if len(s) == 1 && strings.ToUpper(s)[0] >= 'A' && strings.ToUpper(s)[0] <= 'Z' {
			idx = int(strings.ToUpper(s)[0] - 'A')
		} else {
			for i, opt := range options {
				if strings.EqualFold(opt.Text, s) {
					idx = i
					break
				}
			}
		}
	}
	if idx >= 0 && idx < len(options) {
		options[idx].IsCorrect = true
	}
}

func normalizeTrueFalse(options []models.Option, answer interface{}) []models.Option {
	correct, ok := models.ParseBoolAnswer(answer)
	if !ok {
		// fall back to a flagged "True"/"False" option
		for _, opt := range options {
			if !opt.IsCorrect {
				continue
			}
			if v, vok := models.ParseBoolAnswer(opt.Text); vok {
				correct, ok = v, true
			}
		}
	}

	result := []models.Option{{Text: "True"}, {Text: "False"}}
	if ok {
		result[0].IsCorrect = correct
		result[1].IsCorrect = !correct
	}
	for _, opt := range options {
		if v, vok := models.ParseBoolAnswer(opt.Text); vok && opt.Explanation != nil {
			if v {
				result[0].Explanation = opt.Explanation
			} else {
				result[1].Explanation = opt.Explanation
			}
		}
	}
	return result
}

func normalizePoints(v interface{}) int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(t))
	}
	if n < 1 || n > 100 {
		return models.DefaultQuestionPoints
	}
	return n
}

func anyCorrect(options []models.Option) bool {
	for _, opt := range options {
		if opt.IsCorrect {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
