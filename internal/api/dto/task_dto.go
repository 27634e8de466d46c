package dto

import (
	"time"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// CreateTaskRequest payload. TicketID is optional.
type CreateTaskRequest struct {
	TicketID   string     `json:"ticket_id"`
	AssignedTo string     `json:"assigned_to"`
	Deadline   *time.Time `json:"deadline"`
}

// UpdateTaskRequest payload for full replacement.
type UpdateTaskRequest struct {
	AssignedTo string            `json:"assigned_to"`
	Status     domain.TaskStatus `json:"status"`
	Deadline   *time.Time        `json:"deadline"`
}

// PatchTaskRequest payload for partial update / reassignment.
type PatchTaskRequest struct {
	AssignedTo *string            `json:"assigned_to"`
	Status     *domain.TaskStatus `json:"status"`
	Deadline   *time.Time         `json:"deadline"`
}

// TaskResponse response.
type TaskResponse struct {
	ID         string            `json:"id"`
	TicketID   string            `json:"ticket_id,omitempty"`
	AssignedBy string            `json:"assigned_by,omitempty"`
	AssignedTo string            `json:"assigned_to,omitempty"`
	Status     domain.TaskStatus `json:"status"`
	Deadline   *time.Time        `json:"deadline,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewTaskResponse maps the domain model.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:         task.ID,
		TicketID:   task.TicketID,
		AssignedBy: task.AssignedByID,
		AssignedTo: task.AssignedToID,
		Status:     task.Status,
		Deadline:   task.Deadline,
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}
