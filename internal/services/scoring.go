package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ScoreResult is the server-side score of a set of answers.
type ScoreResult struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
	Correct  int `json:"correct"`
}

// ScoreAnswers grades answers keyed by question index against the frozen questions.
func ScoreAnswers(questions []models.SessionQuestion, answers map[string]interface{}) ScoreResult {
	var result ScoreResult
	for i := range questions {
		q := &questions[i].Question
		points := q.EffectivePoints()
		result.MaxScore += points

		answer, ok := answers[strconv.Itoa(i)]
		if !ok || answer == nil {
			continue
		}
		if IsCorrectAnswer(q, answer) {
			result.Score += points
			result.Correct++
		}
	}
	return result
}

// IsCorrectAnswer checks a single answer value.
func IsCorrectAnswer(q *models.Question, answer interface{}) bool {
	switch q.Type {
	case models.MultipleChoice:
		idx, ok := optionIndex(answer)
		return ok && idx < len(q.Options) && q.Options[idx].IsCorrect
	case models.TrueFalse:
		given, ok := models.ParseBoolAnswer(answer)
		if !ok {
			return false
		}
		expected, ok := trueFalseKey(q)
		return ok && given == expected
	case models.ShortAnswer:
		text, ok := answer.(string)
		return ok && strings.TrimSpace(text) != ""
	}
	return false
}

// trueFalseKey reads the expected boolean from the option marked correct.
// Options that are not literally True or False fall back to position (True first).
func trueFalseKey(q *models.Question) (bool, bool) {
	idx := q.CorrectOptionIndex()
	if idx < 0 {
		return false, false
	}
	if v, ok := models.ParseBoolAnswer(q.Options[idx].Text); ok {
		return v, true
	}
	return idx == 0, true
}

func optionIndex(answer interface{}) (int, bool) {
	var f float64
	switch v := answer.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
