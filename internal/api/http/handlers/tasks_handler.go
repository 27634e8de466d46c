package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/api/dto"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/auth"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/service"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// Create POST /tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.Create(c.UserContext(), actor, service.TaskCreateInput{
		TicketID:     req.TicketID,
		AssignedToID: req.AssignedTo,
		Deadline:     req.Deadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// List GET /tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tasks, err := h.service.List(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.NewTaskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	task, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Update PUT /tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.UpdateFull(c.UserContext(), actor, c.Params("id"), service.TaskUpdateInput{
		AssignedToID: req.AssignedTo,
		Status:       req.Status,
		Deadline:     req.Deadline,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Patch PATCH /tasks/:id.
func (h *TasksHandler) Patch(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PatchTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.Patch(c.UserContext(), actor, c.Params("id"), service.TaskPatch{
		AssignedToID: req.AssignedTo,
		Status:       req.Status,
		Deadline:     req.Deadline,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
