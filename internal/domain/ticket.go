package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. The listed order is
// the forward direction of the lifecycle; status never auto-regresses.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is one of the known values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the ticket still counts against the open-subject
// uniqueness rule.
func (s TicketStatus) IsOpen() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress:
		return true
	}
	return false
}

// OpenTicketStatuses lists the states a ticket can hold before resolution.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// Ticket is the aggregate for support requests. It owns its tasks: deleting
// a ticket removes them.
type Ticket struct {
	ID          string
	OwnerID     string
	Subject     string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
