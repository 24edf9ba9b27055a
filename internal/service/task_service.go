package service

import (
	"context"
	"strings"

	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// TaskService manages ad-hoc tasks. Task mutations never notify anyone.
type TaskService struct {
	tasks       repository.TaskRepository
	engine      *PatchEngine
	attachments AttachmentStore
	now         Clock
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Text       string
	UserEmail  string
	Priority   domain.Priority
	AssignedTo *string
}

// TaskListFilter narrows task listings.
type TaskListFilter struct {
	UserEmail  *string
	AssignedTo *string
}

// NewTaskService constructs the service.
func NewTaskService(tasks repository.TaskRepository, engine *PatchEngine, attachments AttachmentStore, now Clock) *TaskService {
	if now == nil {
		now = SystemClock
	}
	return &TaskService{tasks: tasks, engine: engine, attachments: attachments, now: now}
}

// CreateTask stores the optional screenshot, then inserts the task.
func (s *TaskService) CreateTask(ctx context.Context, input TaskCreateInput, screenshot *storage.Upload) (*domain.TaskView, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required", map[string]any{"field": "text"})
	}
	userEmail := strings.TrimSpace(input.UserEmail)
	if userEmail == "" {
		return nil, apperrors.NewValidationError("user_email is required", map[string]any{"field": "user_email"})
	}
	priority := domain.Priority(strings.TrimSpace(string(input.Priority)))
	if priority == "" {
		priority = domain.PriorityMedium
	}

	task := &domain.Task{
		Text:       text,
		Priority:   priority,
		UserEmail:  userEmail,
		AssignedTo: optionalText(input.AssignedTo),
	}

	var saved []string
	if screenshot != nil {
		if s.attachments == nil {
			return nil, apperrors.NewInternalError(errAttachmentsDisabled)
		}
		urls, err := s.attachments.SaveAll(ctx, []storage.Upload{*screenshot})
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		saved = urls
		if len(urls) == 1 {
			task.ScreenshotURL = &urls[0]
		}
	}

	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.tasks.Create(ctx, task); err != nil {
		if len(saved) > 0 {
			s.attachments.Discard(saved)
		}
		return nil, err
	}
	view := taskView(task)
	return &view, nil
}

// GetTask returns one task.
func (s *TaskService) GetTask(ctx context.Context, id int64) (*domain.TaskView, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	view := taskView(task)
	return &view, nil
}

// ListTasks returns tasks newest first.
func (s *TaskService) ListTasks(ctx context.Context, filter TaskListFilter) ([]domain.TaskView, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{
		UserEmail:  optionalText(filter.UserEmail),
		AssignedTo: optionalText(filter.AssignedTo),
	})
	if err != nil {
		return nil, err
	}
	views := make([]domain.TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, taskView(&tasks[i]))
	}
	return views, nil
}

// PatchTask applies a sparse update.
func (s *TaskService) PatchTask(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.TaskView, error) {
	result, err := s.engine.PatchTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	view := taskView(result.New)
	return &view, nil
}

// SetCompleted flips the completion flag.
func (s *TaskService) SetCompleted(ctx context.Context, id int64, completed bool) (*domain.TaskView, error) {
	return s.PatchTask(ctx, id, domain.TaskPatch{Completed: &completed})
}

// DeleteTask removes the task permanently.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return notFoundOr(err, "task", id)
	}
	return nil
}
