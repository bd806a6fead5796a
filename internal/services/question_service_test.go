package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckInstructions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Question()

	env.seedAssignment(t, 1, "  ")
	_, err := svc.CheckInstructions(ctx, 1)
	assert.ErrorIs(t, err, ErrInstructionsMissing)

	_, err = svc.CheckInstructions(ctx, 404)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	env.seedAssignment(t, 2, "Describe the water cycle")
	env.gateway.On("CheckInstructions", mock.Anything, "Describe the water cycle").
		Return(&gateway.InstructionCheck{IsClear: true, Feedback: "Clear enough"}, nil).Once()

	check, err := svc.CheckInstructions(ctx, 2)
	require.NoError(t, err)
	assert.True(t, check.IsClear)
	env.gateway.AssertExpectations(t)
}

func TestGenerateInstructorQuestions_AppendsValidQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAssignment(t, testAssignmentID, "Describe the water cycle")
	env.seedInstructorQuestions(t, testAssignmentID, mcQuestion("Existing", 0))

	noCorrect := mcQuestion("No answer marked", 0)
	noCorrect.Options[0].IsCorrect = false
	env.gateway.On("GenerateQuestions", mock.Anything, "Describe the water cycle", models.DefaultQuestionsToGenerate, mock.Anything).
		Return(&gateway.QuestionSet{Questions: []models.Question{
			mcQuestion("What drives evaporation?", 2),
			noCorrect,
			tfQuestion("Clouds are water vapour", true),
		}, FromCache: true}, nil).Once()

	result, err := env.manager.Question().GenerateInstructorQuestions(ctx, testAssignmentID, &GenerateQuestionsRequest{}, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 1, result.Discarded)
	assert.True(t, result.FromCache)

	stored, err := env.manager.Question().ListInstructorQuestions(ctx, testAssignmentID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "Existing", stored[0].Text)
	assert.Equal(t, []int{0, 1, 2}, []int{stored[0].Position, stored[1].Position, stored[2].Position})
	assert.Equal(t, "What drives evaporation?", stored[1].Text)
	env.gateway.AssertExpectations(t)
}

func TestGenerateInstructorQuestions_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Question()
	env.seedAssignment(t, 1, "")
	env.seedAssignment(t, 2, "Explain photosynthesis")

	_, err := svc.GenerateInstructorQuestions(ctx, 1, &GenerateQuestionsRequest{Count: 3}, "teacher-1")
	assert.ErrorIs(t, err, ErrInstructionsMissing)

	_, err = svc.GenerateInstructorQuestions(ctx, 2, &GenerateQuestionsRequest{Count: 11}, "teacher-1")
	assert.True(t, IsValidation(err))

	broken := models.Question{Type: models.TrueFalse, Text: "One option", Options: []models.Option{{Text: "True", IsCorrect: true}}}
	env.gateway.On("GenerateQuestions", mock.Anything, "Explain photosynthesis", 3, mock.Anything).
		Return(&gateway.QuestionSet{Questions: []models.Question{broken}}, nil).Once()
	_, err = svc.GenerateInstructorQuestions(ctx, 2, &GenerateQuestionsRequest{Count: 3}, "teacher-1")
	assert.ErrorIs(t, err, ErrNoValidQuestions)

	env.gateway.On("GenerateQuestions", mock.Anything, "Explain photosynthesis", 4, mock.Anything).
		Return(nil, &gateway.Error{Kind: gateway.ErrKindAuth, Message: "bad token"}).Once()
	_, err = svc.GenerateInstructorQuestions(ctx, 2, &GenerateQuestionsRequest{Count: 4}, "teacher-1")
	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, gateway.ErrKindAuth, gwErr.Kind)

	stored, err := svc.ListInstructorQuestions(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReplaceInstructorQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Question()
	env.seedAssignment(t, testAssignmentID, "Rivers")
	env.seedInstructorQuestions(t, testAssignmentID, mcQuestion("Old 1", 0), mcQuestion("Old 2", 1))

	twoCorrect := mcQuestion("Two correct", 0)
	twoCorrect.Options[1].IsCorrect = true
	_, err := svc.ReplaceInstructorQuestions(ctx, testAssignmentID, []models.Question{mcQuestion("New", 0), twoCorrect}, "teacher-1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "questions[1].options")

	stored, err := svc.ListInstructorQuestions(ctx, testAssignmentID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	replaced, err := svc.ReplaceInstructorQuestions(ctx, testAssignmentID, []models.Question{tfQuestion("Only one", true)}, "teacher-2")
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, "Only one", replaced[0].Text)
	assert.Equal(t, "teacher-2", replaced[0].CreatedBy)

	_, err = svc.ReplaceInstructorQuestions(ctx, 404, []models.Question{tfQuestion("x", true)}, "teacher-1")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestUpdateAndDeleteInstructorQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.manager.Question()
	env.seedAssignment(t, testAssignmentID, "Rivers")
	env.seedInstructorQuestions(t, testAssignmentID, mcQuestion("Original", 0))

	stored, err := svc.ListInstructorQuestions(ctx, testAssignmentID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id := stored[0].ID

	edit := tfQuestion("Edited", false)
	updated, err := svc.UpdateInstructorQuestion(ctx, testAssignmentID, id, &edit)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Text)
	assert.Equal(t, models.TrueFalse, updated.Type)

	invalid := models.Question{Type: models.MultipleChoice, Text: ""}
	_, err = svc.UpdateInstructorQuestion(ctx, testAssignmentID, id, &invalid)
	assert.True(t, IsValidation(err))

	_, err = svc.UpdateInstructorQuestion(ctx, testAssignmentID, id+100, &edit)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	require.NoError(t, svc.DeleteInstructorQuestion(ctx, testAssignmentID, id))
	assert.ErrorIs(t, svc.DeleteInstructorQuestion(ctx, testAssignmentID, id), ErrQuestionNotFound)
}
