package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// TaskService coordinates task workflows. Every operation is scoped to the
// calling owner; a task owned by someone else is indistinguishable from a
// nonexistent one.
type TaskService struct {
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
}

// TaskDependencies bundles requirements for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Dispatcher events.Dispatcher
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
}

// TaskUpdateInput describes a partial task update. Nil fields are left
// unchanged.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
}

// TaskListFilter describes listing filters for an owner's tasks.
type TaskListFilter struct {
	Statuses []domain.TaskStatus
	Limit    int
	Offset   int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTask creates a task owned by the caller.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input TaskCreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if utf8.RuneCountInString(title) > domain.MaxTaskTitleLength {
		return nil, apperrors.NewValidationError("Title can not exceed 100 characters", nil)
	}

	status := input.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	if !domain.ValidTaskStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", nil)
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = domain.DefaultTaskDescription
	}

	if _, err := s.tasks.GetByTitle(ctx, title); err == nil {
		return nil, apperrors.NewConflict("the title already exists!")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	task := &domain.Task{
		Title:       title,
		Description: description,
		Status:      status,
		OwnerID:     ownerID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		if apperrors.IsUniqueViolation(err, "tasks_title_key") {
			return nil, apperrors.NewConflict("the title already exists!")
		}
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventTaskCreated,
		UserID: ownerID,
		Payload: events.TaskCreatedPayload{
			TaskID: task.ID,
			Title:  task.Title,
			Status: task.Status,
		},
	})
	return task, nil
}

// ListTasks returns the caller's tasks. Listing is always owner-filtered;
// there is no unscoped variant.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, filter TaskListFilter) ([]domain.Task, error) {
	for _, status := range filter.Statuses {
		if !domain.ValidTaskStatus(status) {
			return nil, apperrors.NewValidationError("invalid status", nil)
		}
	}
	repoFilter := repository.TaskFilter{
		OwnerID:  &ownerID,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	tasks, err := s.tasks.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// GetTask fetches a task, enforcing ownership.
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return s.getOwned(ctx, ownerID, taskID)
}

// UpdateTask applies a partial update to an owned task.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.getOwned(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		if utf8.RuneCountInString(title) > domain.MaxTaskTitleLength {
			return nil, apperrors.NewValidationError("Title can not exceed 100 characters", nil)
		}
		if title != task.Title {
			if _, err := s.tasks.GetByTitle(ctx, title); err == nil {
				return nil, apperrors.NewConflict("the title already exists!")
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !domain.ValidTaskStatus(*input.Status) {
			return nil, apperrors.NewValidationError("invalid status", nil)
		}
		task.Status = *input.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if apperrors.IsUniqueViolation(err, "tasks_title_key") {
			return nil, apperrors.NewConflict("the title already exists!")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task")
		}
		return nil, err
	}
	return task, nil
}

// CompleteTask forces the task status to completed. Repeating the call is
// idempotent.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.getOwned(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == domain.TaskStatusCompleted {
		return task, nil
	}

	task.Status = domain.TaskStatusCompleted
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task")
		}
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventTaskCompleted,
		UserID: ownerID,
		Payload: events.TaskCompletedPayload{
			TaskID: task.ID,
			Title:  task.Title,
		},
	})
	return task, nil
}

// DeleteTask removes an owned task.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	task, err := s.getOwned(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task")
		}
		return err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventTaskDeleted,
		UserID: ownerID,
		Payload: events.TaskDeletedPayload{
			TaskID: task.ID,
			Title:  task.Title,
		},
	})
	return nil
}

// getOwned loads a task and checks ownership. Denied access is reported as
// not-found so other users' task ids never leak.
func (s *TaskService) getOwned(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task")
		}
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("task")
	}
	return task, nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
