package gateway

import (
	"encoding/json"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawList(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var raws []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &raws))
	return raws
}

func TestNormalizeQuestions_Shapes(t *testing.T) {
	raws := rawList(t, `[
		{"type":"multiple_choice","question":"Pick B","options":["a","b","c"],"correct_answer":1},
		{"type":"multiple-choice","text":"Pick C","options":["a","b","c"],"correct_answer":"C"},
		{"text":"Pick object","options":[{"text":"x"},{"option":"y","correct":true,"feedback":"because"}]},
		{"type":"truefalse","text":"Water is wet","correct_answer":1},
		{"type":"true_false","text":"Fire is cold","options":[{"text":"True"},{"text":"False","is_correct":"true"}]},
		{"type":"short_answer","text":"Describe your approach","options":["ignored"],"points":"15","rationale":"open"}
	]`)

	questions, err := NormalizeQuestions(raws)
	require.NoError(t, err)
	require.Len(t, questions, 6)

	assert.Equal(t, models.MultipleChoice, questions[0].Type)
	assert.Equal(t, 1, questions[0].CorrectOptionIndex())
	assert.Equal(t, models.DefaultQuestionPoints, questions[0].Points)

	assert.Equal(t, models.MultipleChoice, questions[1].Type)
	assert.Equal(t, 2, questions[1].CorrectOptionIndex())

	assert.Equal(t, models.MultipleChoice, questions[2].Type)
	assert.Equal(t, 1, questions[2].CorrectOptionIndex())
	require.NotNil(t, questions[2].Options[1].Explanation)
	assert.Equal(t, "because", *questions[2].Options[1].Explanation)

	assert.Equal(t, models.TrueFalse, questions[3].Type)
	require.Len(t, questions[3].Options, 2)
	assert.True(t, questions[3].Options[0].IsCorrect)
	assert.False(t, questions[3].Options[1].IsCorrect)

	assert.False(t, questions[4].Options[0].IsCorrect)
	assert.True(t, questions[4].Options[1].IsCorrect)

	assert.Equal(t, models.ShortAnswer, questions[5].Type)
	assert.Nil(t, questions[5].Options)
	assert.Equal(t, 15, questions[5].Points)
	require.NotNil(t, questions[5].Explanation)
	assert.Equal(t, "open", *questions[5].Explanation)
}

func TestNormalizeQuestions_RejectsMissingText(t *testing.T) {
	_, err := NormalizeQuestions(rawList(t, `[{"type":"short_answer"}]`))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindMalformed))

	_, err = NormalizeQuestions(rawList(t, `["just a string"]`))
	assert.True(t, IsKind(err, ErrKindMalformed))
}
