package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTaskAssigned        EventType = "task_assigned"
	EventTaskCompleted       EventType = "task_completed"
)

// Event represents a domain event emitted by services after a mutation
// commits. RecipientID names the user the notification sink should target.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ActorID     string      `json:"actor_id"`
	RecipientID string      `json:"recipient_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string `json:"ticket_id"`
	Subject  string `json:"subject"`
	Status   string `json:"status"`
}

// TicketAssignedPayload payload for the propagation assignment notification.
type TicketAssignedPayload struct {
	TicketID string `json:"ticket_id"`
	Status   string `json:"status"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  string `json:"ticket_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// TaskAssignedPayload payload for assignment and reassignment.
type TaskAssignedPayload struct {
	TaskID   string `json:"task_id"`
	TicketID string `json:"ticket_id,omitempty"`
	Status   string `json:"status"`
}

// TaskCompletedPayload payload for the task-completion notification.
type TaskCompletedPayload struct {
	TicketID string `json:"ticket_id"`
	Status   string `json:"status"`
}
