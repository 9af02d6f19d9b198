package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository/memory"
	"github.com/spec-kit/task-service/internal/service"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

func newTaskService(dispatcher events.Dispatcher) *service.TaskService {
	return service.NewTaskService(service.TaskDependencies{
		TaskRepo:   memory.NewTaskRepository(),
		Dispatcher: dispatcher,
	})
}

func TestCreateTaskDefaults(t *testing.T) {
	svc := newTaskService(nil)

	task, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T1"})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "T1", task.Title)
	assert.Equal(t, domain.DefaultTaskDescription, task.Description)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, "user-1", task.OwnerID)
}

func TestCreateTaskValidation(t *testing.T) {
	svc := newTaskService(nil)

	_, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "   "})
	assert.Equal(t, apperrors.CodeValidationFailed, asDomainError(t, err).Code)

	_, err = svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{
		Title: strings.Repeat("x", domain.MaxTaskTitleLength+1),
	})
	assert.Equal(t, apperrors.CodeValidationFailed, asDomainError(t, err).Code)

	_, err = svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{
		Title:  "T1",
		Status: "done",
	})
	assert.Equal(t, apperrors.CodeValidationFailed, asDomainError(t, err).Code)
}

func TestCreateTaskDuplicateTitle(t *testing.T) {
	svc := newTaskService(nil)

	_, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T1"})
	require.NoError(t, err)

	// title uniqueness is global, not per owner
	_, err = svc.CreateTask(context.Background(), "user-2", service.TaskCreateInput{Title: "T1"})
	domainErr := asDomainError(t, err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Contains(t, domainErr.Message, "title")
}

func TestOwnershipDeniedIsShapedAsNotFound(t *testing.T) {
	svc := newTaskService(nil)

	task, err := svc.CreateTask(context.Background(), "user-a", service.TaskCreateInput{Title: "A's task"})
	require.NoError(t, err)

	// a different caller sees the same not-found shape as a bogus id
	_, getErr := svc.GetTask(context.Background(), "user-b", task.ID)
	_, missingErr := svc.GetTask(context.Background(), "user-b", "task-unknown")

	getDomain := asDomainError(t, getErr)
	missingDomain := asDomainError(t, missingErr)
	assert.Equal(t, http.StatusNotFound, getDomain.HTTPStatus)
	assert.Equal(t, missingDomain.Message, getDomain.Message)

	title := "hijacked"
	_, err = svc.UpdateTask(context.Background(), "user-b", task.ID, service.TaskUpdateInput{Title: &title})
	assert.Equal(t, http.StatusNotFound, asDomainError(t, err).HTTPStatus)

	_, err = svc.CompleteTask(context.Background(), "user-b", task.ID)
	assert.Equal(t, http.StatusNotFound, asDomainError(t, err).HTTPStatus)

	err = svc.DeleteTask(context.Background(), "user-b", task.ID)
	assert.Equal(t, http.StatusNotFound, asDomainError(t, err).HTTPStatus)

	// the owner still has full access
	got, err := svc.GetTask(context.Background(), "user-a", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestListTasksIsOwnerScoped(t *testing.T) {
	svc := newTaskService(nil)

	_, err := svc.CreateTask(context.Background(), "user-a", service.TaskCreateInput{Title: "A1"})
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), "user-a", service.TaskCreateInput{Title: "A2", Status: domain.TaskStatusInProgress})
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), "user-b", service.TaskCreateInput{Title: "B1"})
	require.NoError(t, err)

	tasks, err := svc.ListTasks(context.Background(), "user-a", service.TaskListFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "user-a", task.OwnerID)
	}

	tasks, err = svc.ListTasks(context.Background(), "user-a", service.TaskListFilter{
		Statuses: []domain.TaskStatus{domain.TaskStatusInProgress},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A2", tasks[0].Title)

	tasks, err = svc.ListTasks(context.Background(), "user-c", service.TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestListTasksPagination(t *testing.T) {
	svc := newTaskService(nil)

	for _, title := range []string{"P1", "P2", "P3"} {
		_, err := svc.CreateTask(context.Background(), "user-a", service.TaskCreateInput{Title: title})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	// Newest-first, capped at the requested limit.
	tasks, err := svc.ListTasks(context.Background(), "user-a", service.TaskListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "P3", tasks[0].Title)
	assert.Equal(t, "P2", tasks[1].Title)

	tasks, err = svc.ListTasks(context.Background(), "user-a", service.TaskListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "P1", tasks[0].Title)

	tasks, err = svc.ListTasks(context.Background(), "user-a", service.TaskListFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskTitleLengthCountsRunes(t *testing.T) {
	svc := newTaskService(nil)

	task, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{
		Title: strings.Repeat("é", domain.MaxTaskTitleLength),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTaskTitleLength, len([]rune(task.Title)))

	_, err = svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{
		Title: strings.Repeat("é", domain.MaxTaskTitleLength+1),
	})
	assert.Equal(t, apperrors.CodeValidationFailed, asDomainError(t, err).Code)
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	var completed []events.Event
	dispatcher.Subscribe(events.EventTaskCompleted, func(_ context.Context, event events.Event) error {
		completed = append(completed, event)
		return nil
	})
	svc := newTaskService(dispatcher)

	task, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T1"})
	require.NoError(t, err)

	done, err := svc.CompleteTask(context.Background(), "user-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)

	again, err := svc.CompleteTask(context.Background(), "user-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, again.Status)

	// the event fires only on the transition, not on the repeat
	assert.Len(t, completed, 1)
}

func TestUpdateTask(t *testing.T) {
	svc := newTaskService(nil)

	task, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T1"})
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T2"})
	require.NoError(t, err)

	title := "T1 renamed"
	description := "write the report"
	status := domain.TaskStatusInProgress
	updated, err := svc.UpdateTask(context.Background(), "user-1", task.ID, service.TaskUpdateInput{
		Title:       &title,
		Description: &description,
		Status:      &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "T1 renamed", updated.Title)
	assert.Equal(t, "write the report", updated.Description)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)

	taken := "T2"
	_, err = svc.UpdateTask(context.Background(), "user-1", task.ID, service.TaskUpdateInput{Title: &taken})
	assert.Equal(t, http.StatusBadRequest, asDomainError(t, err).HTTPStatus)

	bad := domain.TaskStatus("done")
	_, err = svc.UpdateTask(context.Background(), "user-1", task.ID, service.TaskUpdateInput{Status: &bad})
	assert.Equal(t, apperrors.CodeValidationFailed, asDomainError(t, err).Code)
}

func TestDeleteTask(t *testing.T) {
	svc := newTaskService(nil)

	task, err := svc.CreateTask(context.Background(), "user-1", service.TaskCreateInput{Title: "T1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(context.Background(), "user-1", task.ID))

	_, err = svc.GetTask(context.Background(), "user-1", task.ID)
	assert.Equal(t, http.StatusNotFound, asDomainError(t, err).HTTPStatus)
}
