package dto

import (
	"time"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// UpdateTicketRequest payload for full replacement.
type UpdateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// PatchTicketRequest payload for partial update. Status is honored only for
// super admins.
type PatchTicketRequest struct {
	Subject     *string              `json:"subject"`
	Description *string              `json:"description"`
	Status      *domain.TicketStatus `json:"status"`
}

// TicketResponse response.
type TicketResponse struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	Subject     string              `json:"subject"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewTicketResponse maps the domain model.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		OwnerID:     ticket.OwnerID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}
