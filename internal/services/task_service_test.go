package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) ageTask(t *testing.T, id uint, status models.TaskStatus, attempts int, age time.Duration) {
	t.Helper()
	then := time.Now().Add(-age)
	updates := map[string]interface{}{"status": status, "attempts": attempts, "queued_at": then}
	if status == models.TaskRunning {
		updates["started_at"] = then
	}
	require.NoError(t, e.repo.DB().Model(&models.SubmissionTask{}).Where("id = ?", id).Updates(updates).Error)
}

func TestTaskReapStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tasks := env.repo.Task()

	lost, err := tasks.Enqueue(ctx, nil, testAssignmentID, 1)
	require.NoError(t, err)
	crashed, err := tasks.Enqueue(ctx, nil, testAssignmentID, 2)
	require.NoError(t, err)
	exhausted, err := tasks.Enqueue(ctx, nil, testAssignmentID, 3)
	require.NoError(t, err)
	fresh, err := tasks.Enqueue(ctx, nil, testAssignmentID, 4)
	require.NoError(t, err)

	env.ageTask(t, lost.ID, models.TaskQueued, 1, time.Hour)
	env.ageTask(t, crashed.ID, models.TaskRunning, 2, time.Hour)
	env.ageTask(t, exhausted.ID, models.TaskRunning, MaxTaskAttempts, time.Hour)

	result, err := env.manager.Task().ReapStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, &ReapResult{Requeued: 2, Failed: 1}, result)

	assert.ElementsMatch(t, []events.SubmissionJob{
		{AssignmentID: testAssignmentID, SubmissionID: 1},
		{AssignmentID: testAssignmentID, SubmissionID: 2},
	}, env.queue.jobs)

	status, err := env.manager.Task().GetStatus(ctx, testAssignmentID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TaskQueued, status.Status)
	assert.Equal(t, 3, status.Attempts)

	status, err = env.manager.Task().GetStatus(ctx, testAssignmentID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.TaskFailed, status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Contains(t, *status.ErrorMessage, "abandoned")

	status, err = env.manager.Task().GetStatus(ctx, testAssignmentID, fresh.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskQueued, status.Status)
	assert.Equal(t, 1, status.Attempts)
}

func TestTaskReapStale_UnblocksNextSubmissionEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedSettings(t, testAssignmentID, 0, 2)

	_, err := env.manager.Submission().HandleSubmissionEvent(ctx, submissionEvent(models.SubmissionSubmitted, "final"))
	require.NoError(t, err)
	task, err := env.repo.Task().Get(ctx, nil, testAssignmentID, testSubmissionID)
	require.NoError(t, err)
	env.ageTask(t, task.ID, models.TaskRunning, MaxTaskAttempts, time.Hour)

	// stuck in running: the webhook is treated as already queued
	result, err := env.manager.Submission().HandleSubmissionEvent(ctx, submissionEvent(models.SubmissionSubmitted, "final"))
	require.NoError(t, err)
	assert.Equal(t, "already queued", result.Reason)
	require.Len(t, env.queue.jobs, 1)

	_, err = env.manager.Task().ReapStale(ctx, 15*time.Minute)
	require.NoError(t, err)

	result, err = env.manager.Submission().HandleSubmissionEvent(ctx, submissionEvent(models.SubmissionSubmitted, "final"))
	require.NoError(t, err)
	assert.True(t, result.Queued)
	assert.Empty(t, result.Reason)
	assert.Len(t, env.queue.jobs, 2)
}

func TestTaskList_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	running, err := env.repo.Task().Enqueue(ctx, nil, testAssignmentID, 1)
	require.NoError(t, err)
	_, err = env.repo.Task().Enqueue(ctx, nil, testAssignmentID, 2)
	require.NoError(t, err)
	require.NoError(t, env.repo.Task().MarkRunning(ctx, nil, running.ID))

	list, err := env.manager.Task().List(ctx, repositories.TaskFilters{Statuses: []models.TaskStatus{models.TaskRunning}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(1), list[0].SubmissionID)

	all, err := env.manager.Task().List(ctx, repositories.TaskFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
