package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/authz"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/config"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

// TicketService owns ticket state transitions and creation constraints.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	cfg        config.TicketConfig
}

// NewTicketService constructs the service.
func NewTicketService(store repository.Store, dispatcher events.Dispatcher, cfg config.TicketConfig) *TicketService {
	return &TicketService{store: store, dispatcher: dispatcher, cfg: cfg}
}

// TicketPatch describes a partial update. Nil fields are left unchanged.
// Status may only be set by a super_admin (the explicit admin override to
// the otherwise derived, forward-only status).
type TicketPatch struct {
	Subject     *string
	Description *string
	Status      *domain.TicketStatus
}

// Create files a new ticket owned by the actor. The subject is trimmed
// before the open-duplicate check and storage; creation counts against the
// actor's daily quota (UTC calendar day).
func (s *TicketService) Create(ctx context.Context, actor *domain.User, subject, description string) (*domain.Ticket, error) {
	if !authz.Allow(actor.Role, authz.ActionTicketCreate, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to create a ticket")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	ticket := &domain.Ticket{
		OwnerID:     actor.ID,
		Subject:     subject,
		Description: description,
		Status:      domain.TicketStatusNew,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		createdToday, err := tx.Tickets().CountCreatedSince(ctx, actor.ID, startOfUTCDay(time.Now()))
		if err != nil {
			return apperrors.MapError(err)
		}
		if createdToday >= s.dailyLimit() {
			return apperrors.NewQuotaExceeded(
				fmt.Sprintf("you have reached the daily limit of %d tickets", s.dailyLimit()),
				map[string]any{"limit": s.dailyLimit()})
		}
		duplicate, err := tx.Tickets().HasOpenWithSubject(ctx, actor.ID, subject, "")
		if err != nil {
			return apperrors.MapError(err)
		}
		if duplicate {
			return apperrors.NewValidationError("you already have an open ticket with this subject",
				map[string]any{"subject": subject})
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("created ticket %s", ticket.ID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketCreated,
		ActorID:     actor.ID,
		RecipientID: ticket.OwnerID,
		Payload: events.TicketCreatedPayload{
			TicketID: ticket.ID,
			Subject:  ticket.Subject,
			Status:   string(ticket.Status),
		},
	})
	return ticket, nil
}

// UpdateFull replaces subject and description. Only the owner may call, and
// only before work started.
func (s *TicketService) UpdateFull(ctx context.Context, actor *domain.User, id, subject, description string) (*domain.Ticket, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.loadTicket(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Allow(actor.Role, authz.ActionTicketUpdateFull, ticketRelationship(actor, ticket)) {
			return apperrors.NewForbidden("you do not have permission to fully update this ticket")
		}
		switch ticket.Status {
		case domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed:
			return apperrors.NewValidationError(
				fmt.Sprintf("tickets with status %q cannot be fully updated", ticket.Status), nil)
		}
		duplicate, err := tx.Tickets().HasOpenWithSubject(ctx, ticket.OwnerID, subject, ticket.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if duplicate {
			return apperrors.NewValidationError("you already have an open ticket with this subject",
				map[string]any{"subject": subject})
		}
		ticket.Subject = subject
		ticket.Description = description
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("updated ticket %s", ticket.ID))
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdatePartial applies a patch. Owner or super_admin; blocked once the
// ticket is resolved.
func (s *TicketService) UpdatePartial(ctx context.Context, actor *domain.User, id string, patch TicketPatch) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var statusChange *events.TicketStatusChangedPayload

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		ticket, err = s.loadTicket(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Allow(actor.Role, authz.ActionTicketUpdatePartial, ticketRelationship(actor, ticket)) {
			return apperrors.NewForbidden("you do not have permission to update this ticket")
		}
		if ticket.Status == domain.TicketStatusResolved {
			return apperrors.NewValidationError("tickets with status \"resolved\" cannot be updated", nil)
		}

		if patch.Subject != nil {
			subject := strings.TrimSpace(*patch.Subject)
			if subject == "" {
				return apperrors.NewValidationError("subject is required", nil)
			}
			duplicate, err := tx.Tickets().HasOpenWithSubject(ctx, ticket.OwnerID, subject, ticket.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if duplicate {
				return apperrors.NewValidationError("you already have an open ticket with this subject",
					map[string]any{"subject": subject})
			}
			ticket.Subject = subject
		}
		if patch.Description != nil {
			ticket.Description = *patch.Description
		}
		if patch.Status != nil {
			if actor.Role != domain.RoleSuperAdmin {
				return apperrors.NewForbidden("only a super admin may change ticket status directly")
			}
			if !patch.Status.Valid() {
				return apperrors.NewValidationError("invalid ticket status", map[string]any{"status": *patch.Status})
			}
			if *patch.Status != ticket.Status {
				statusChange = &events.TicketStatusChangedPayload{
					TicketID:  ticket.ID,
					OldStatus: string(ticket.Status),
					NewStatus: string(*patch.Status),
				}
				ticket.Status = *patch.Status
			}
		}

		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("patched ticket %s", ticket.ID))
	})
	if err != nil {
		return nil, err
	}

	if statusChange != nil {
		s.publish(ctx, events.Event{
			Type:        events.EventTicketStatusChanged,
			ActorID:     actor.ID,
			RecipientID: ticket.OwnerID,
			Payload:     *statusChange,
		})
	}
	return ticket, nil
}

// Delete removes a ticket and its tasks. Owner only; blocked while work is
// assigned or underway.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, id string) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := s.loadTicket(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Allow(actor.Role, authz.ActionTicketDelete, ticketRelationship(actor, ticket)) {
			return apperrors.NewForbidden("you do not have permission to delete this ticket")
		}
		switch ticket.Status {
		case domain.TicketStatusAssigned, domain.TicketStatusInProgress:
			return apperrors.NewValidationError(
				fmt.Sprintf("tickets with status %q cannot be deleted", ticket.Status), nil)
		}
		if err := tx.Tickets().Delete(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("deleted ticket %s", ticket.ID))
	})
}

// Get returns one ticket, enforcing ownership for non-admins.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !authz.Allow(actor.Role, authz.ActionTicketView, ticketRelationship(actor, ticket)) {
		return nil, apperrors.NewForbidden("you do not have permission to view this ticket")
	}
	return ticket, nil
}

// List returns every ticket for a super_admin, the actor's own otherwise.
func (s *TicketService) List(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if !authz.Allow(actor.Role, authz.ActionTicketList, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to list tickets")
	}
	if actor.Role == domain.RoleSuperAdmin {
		tickets, err := s.store.Tickets().ListAll(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return tickets, nil
	}
	tickets, err := s.store.Tickets().ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) loadTicket(ctx context.Context, tx repository.Store, id string) (*domain.Ticket, error) {
	ticket, err := tx.Tickets().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) dailyLimit() int {
	if s.cfg.DailyCreateLimit <= 0 {
		return 10
	}
	return s.cfg.DailyCreateLimit
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func ticketRelationship(actor *domain.User, ticket *domain.Ticket) authz.Relationship {
	if ticket.OwnerID == actor.ID {
		return authz.RelationOwner
	}
	return authz.RelationNone
}

func appendAudit(ctx context.Context, tx repository.Store, actorID, event string) error {
	if err := tx.Audit().Append(ctx, &domain.AuditLog{ActorID: actorID, Event: event}); err != nil {
		return apperrors.MapError(err)
	}
	return nil
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

func startOfUTCDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
