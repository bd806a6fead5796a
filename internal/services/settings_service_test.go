package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsGet_Defaults(t *testing.T) {
	env := newTestEnv(t)

	settings, err := env.manager.Settings().Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), settings.AssignmentID)
	assert.False(t, settings.Enabled)
	assert.Equal(t, models.DefaultQuestionsToGenerate, settings.QuestionsToGenerate)
	assert.Equal(t, models.DefaultTimePerQuestion, settings.TimePerQuestion)
	assert.Equal(t, models.DefaultMaxWindowBlurs, settings.MaxWindowBlurs)
	assert.True(t, settings.ShowCountdown)
}

func TestSettingsSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Settings()
	env.seedAssignment(t, testAssignmentID, "")

	valid := models.DefaultQuizSettings(testAssignmentID)
	valid.Enabled = true
	valid.InstructorQuestions = 3
	valid.TimePerQuestion = 30
	valid.ShowCountdown = false

	saved, err := svc.Save(ctx, valid)
	require.NoError(t, err)
	assert.True(t, saved.Enabled)
	assert.Equal(t, 3, saved.InstructorQuestions)
	assert.Equal(t, 30, saved.TimePerQuestion)
	assert.False(t, saved.ShowCountdown)

	tests := []struct {
		name   string
		mutate func(s *models.QuizSettings)
	}{
		{"time not in allowed set", func(s *models.QuizSettings) { s.TimePerQuestion = 12 }},
		{"too many to generate", func(s *models.QuizSettings) { s.QuestionsToGenerate = 11 }},
		{"negative pool", func(s *models.QuizSettings) { s.SubmissionQuestions = -1 }},
		{"zero blur threshold", func(s *models.QuizSettings) { s.MaxWindowBlurs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invalid := models.DefaultQuizSettings(testAssignmentID)
			tt.mutate(invalid)
			_, err := svc.Save(ctx, invalid)
			assert.True(t, IsValidation(err))
		})
	}

	// rejected saves leave the stored row alone
	stored, err := svc.Get(ctx, testAssignmentID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	assert.Equal(t, 30, stored.TimePerQuestion)
	assert.False(t, stored.ShowCountdown)

	// the conflict-update path must write false over a stored true
	stored.ShowCountdown = true
	_, err = svc.Save(ctx, stored)
	require.NoError(t, err)
	stored.ShowCountdown = false
	_, err = svc.Save(ctx, stored)
	require.NoError(t, err)
	reread, err := svc.Get(ctx, testAssignmentID)
	require.NoError(t, err)
	assert.False(t, reread.ShowCountdown)

	_, err = svc.Save(ctx, models.DefaultQuizSettings(404))
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAssignmentUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Assignment()

	saved, err := svc.Upsert(ctx, &models.Assignment{ID: 3, Name: "Lab report"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, saved.MaxGrade)

	saved, err = svc.Upsert(ctx, &models.Assignment{ID: 3, Name: "Lab report v2", MaxGrade: 20})
	require.NoError(t, err)
	assert.Equal(t, "Lab report v2", saved.Name)
	assert.Equal(t, 20.0, saved.MaxGrade)

	_, err = svc.Upsert(ctx, &models.Assignment{Name: "No id"})
	assert.True(t, IsValidation(err))

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}
