package validator

import (
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	v := New()

	valid := models.DefaultQuizSettings(1)
	valid.InstructorQuestions = 3
	valid.SubmissionQuestions = 2
	assert.NoError(t, v.Validate(valid))

	invalid := models.DefaultQuizSettings(1)
	invalid.TimePerQuestion = 12
	invalid.QuestionsToGenerate = 11

	err := v.Validate(invalid)
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "time_per_question", fields["time_per_question"])
	assert.Equal(t, "max", fields["questions_to_generate"])
}

func TestValidateQuestion(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		question models.Question
		wantRule string
	}{
		{
			name: "valid multiple choice",
			question: models.Question{
				Type: models.MultipleChoice, Text: "Pick one",
				Options: []models.Option{{Text: "a"}, {Text: "b", IsCorrect: true}},
			},
		},
		{
			name: "multiple choice without correct option",
			question: models.Question{
				Type: models.MultipleChoice, Text: "Pick one",
				Options: []models.Option{{Text: "a"}, {Text: "b"}},
			},
			wantRule: "question_options",
		},
		{
			name: "true false with three options",
			question: models.Question{
				Type: models.TrueFalse, Text: "Is it?",
				Options: []models.Option{{Text: "True", IsCorrect: true}, {Text: "False"}, {Text: "Maybe"}},
			},
			wantRule: "true_false_options",
		},
		{
			name:     "short answer needs no options",
			question: models.Question{Type: models.ShortAnswer, Text: "Explain"},
		},
		{
			name:     "unknown type",
			question: models.Question{Type: "essay", Text: "Write"},
			wantRule: "question_type",
		},
		{
			name:     "points out of range",
			question: models.Question{Type: models.ShortAnswer, Text: "Explain", Points: 101},
			wantRule: "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.question
			err := v.Validate(&q)
			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.wantRule, errs[0].Rule)
		})
	}
}

func TestValidateBatchPrefixesIndex(t *testing.T) {
	v := New()

	err := v.Question().ValidateBatch([]models.Question{
		{Type: models.ShortAnswer, Text: "ok"},
		{Type: models.MultipleChoice, Text: "bad", Options: []models.Option{{Text: "only", IsCorrect: true}}},
	})
	require.Error(t, err)

	errs := err.(ValidationErrors)
	require.Len(t, errs, 1)
	assert.Equal(t, "questions[1].options", errs[0].Field)
}
