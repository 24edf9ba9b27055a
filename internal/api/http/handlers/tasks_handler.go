package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-api/internal/api/dto"
	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/service"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	apperrors "github.com/supportdesk/helpdesk-api/pkg/errorutil"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// CreateTask POST /tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	files, err := multipartFiles(c, "screenshot")
	if err != nil {
		return err
	}
	var screenshot *storage.Upload
	if len(files) > 0 {
		uploads := storage.FromFileHeaders(files[:1])
		screenshot = &uploads[0]
	}

	view, err := h.service.CreateTask(c.UserContext(), service.TaskCreateInput{
		Text:       req.Text,
		UserEmail:  req.UserEmail,
		Priority:   domain.Priority(req.Priority),
		AssignedTo: req.AssignedTo,
	}, screenshot)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// ListTasks GET /tasks?user_email=&assigned_to=.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	filter := service.TaskListFilter{}
	if email := strings.TrimSpace(c.Query("user_email")); email != "" {
		filter.UserEmail = &email
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		filter.AssignedTo = &assignee
	}
	views, err := h.service.ListTasks(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GetTask GET /tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTask(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// PatchTask PATCH /tasks/:id.
func (h *TasksHandler) PatchTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.PatchTaskRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	view, err := h.service.PatchTask(c.UserContext(), id, req.ToPatch())
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// SetCompleted PUT /tasks/:id/completed.
func (h *TasksHandler) SetCompleted(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.SetCompletedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Completed == nil {
		return apperrors.NewValidationError("completed required", map[string]any{"field": "completed"})
	}
	view, err := h.service.SetCompleted(c.UserContext(), id, *req.Completed)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// DeleteTask DELETE /tasks/:id.
func (h *TasksHandler) DeleteTask(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTask(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Task deleted"})
}
