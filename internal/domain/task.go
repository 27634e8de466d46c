package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work assigned against a ticket. TicketID is empty for
// standalone tasks. AssignedByID is empty when the creator was removed.
// AssignedToID is empty only before assignment is finalized; unassigned
// tasks are the only deletable ones.
type Task struct {
	ID           string
	TicketID     string
	AssignedByID string
	AssignedToID string
	Status       TaskStatus
	Deadline     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
