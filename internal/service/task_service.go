package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/authz"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

// TaskService owns task creation, assignment and reassignment constraints,
// and triggers status propagation on the owning ticket after every task
// mutation.
type TaskService struct {
	store      repository.Store
	dispatcher events.Dispatcher
}

// NewTaskService constructs the service.
func NewTaskService(store repository.Store, dispatcher events.Dispatcher) *TaskService {
	return &TaskService{store: store, dispatcher: dispatcher}
}

// TaskCreateInput describes task creation payload. TicketID is optional;
// tasks may exist standalone.
type TaskCreateInput struct {
	TicketID     string
	AssignedToID string
	Deadline     *time.Time
}

// TaskUpdateInput replaces the mutable task fields.
type TaskUpdateInput struct {
	AssignedToID string
	Status       domain.TaskStatus
	Deadline     *time.Time
}

// TaskPatch describes a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	AssignedToID *string
	Status       *domain.TaskStatus
	Deadline     *time.Time
}

// Create opens a task assigned by the actor. Self-assignment is rejected;
// the deadline, when given, must not be in the past.
func (s *TaskService) Create(ctx context.Context, actor *domain.User, input TaskCreateInput) (*domain.Task, error) {
	if !authz.Allow(actor.Role, authz.ActionTaskCreate, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to create a task")
	}
	if input.AssignedToID == "" {
		return nil, apperrors.NewValidationError("assigned_to is required", nil)
	}
	if input.AssignedToID == actor.ID {
		return nil, apperrors.NewValidationError("you cannot assign a task to yourself", nil)
	}
	if err := validateDeadline(input.Deadline); err != nil {
		return nil, err
	}

	task := &domain.Task{
		TicketID:     input.TicketID,
		AssignedByID: actor.ID,
		AssignedToID: input.AssignedToID,
		Status:       domain.TaskStatusPending,
		Deadline:     input.Deadline,
	}

	var propagated *events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, input.AssignedToID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("assigned user does not exist",
					map[string]any{"assigned_to": input.AssignedToID})
			}
			return apperrors.MapError(err)
		}
		if input.TicketID != "" {
			if _, err := tx.Tickets().GetByID(ctx, input.TicketID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
				}
				return apperrors.MapError(err)
			}
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return apperrors.MapError(err)
		}
		if err := appendAudit(ctx, tx, actor.ID, fmt.Sprintf("created task %s", task.ID)); err != nil {
			return err
		}
		var err error
		propagated, err = s.propagate(ctx, tx, actor.ID, task.TicketID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTaskAssigned,
		ActorID:     actor.ID,
		RecipientID: task.AssignedToID,
		Payload: events.TaskAssignedPayload{
			TaskID:   task.ID,
			TicketID: task.TicketID,
			Status:   string(task.Status),
		},
	})
	if propagated != nil {
		s.publish(ctx, *propagated)
	}
	return task, nil
}

// UpdateFull replaces the mutable fields. Assigner or super_admin only.
func (s *TaskService) UpdateFull(ctx context.Context, actor *domain.User, id string, input TaskUpdateInput) (*domain.Task, error) {
	if input.AssignedToID == "" {
		return nil, apperrors.NewValidationError("assigned_to is required", nil)
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid task status", map[string]any{"status": input.Status})
	}
	if err := validateDeadline(input.Deadline); err != nil {
		return nil, err
	}

	var task *domain.Task
	var propagated *events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.loadTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Allow(actor.Role, authz.ActionTaskUpdateFull, taskRelationship(actor, task)) {
			return apperrors.NewForbidden("you do not have permission to update this task")
		}
		if input.AssignedToID == task.AssignedByID {
			return apperrors.NewValidationError("a task cannot be assigned to its assigner", nil)
		}
		if _, err := tx.Users().GetByID(ctx, input.AssignedToID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("assigned user does not exist",
					map[string]any{"assigned_to": input.AssignedToID})
			}
			return apperrors.MapError(err)
		}
		task.AssignedToID = input.AssignedToID
		task.Status = input.Status
		task.Deadline = input.Deadline
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return apperrors.MapError(err)
		}
		if err := appendAudit(ctx, tx, actor.ID, fmt.Sprintf("updated task %s", task.ID)); err != nil {
			return err
		}
		propagated, err = s.propagate(ctx, tx, actor.ID, task.TicketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if propagated != nil {
		s.publish(ctx, *propagated)
	}
	return task, nil
}

// Patch applies a partial update and is the reassignment path. Assigner,
// assignee or super_admin may call it. Reassignment is blocked once the task
// is done, and the new holder must be IT personnel.
func (s *TaskService) Patch(ctx context.Context, actor *domain.User, id string, patch TaskPatch) (*domain.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid task status", map[string]any{"status": *patch.Status})
	}
	if patch.Deadline != nil {
		if err := validateDeadline(patch.Deadline); err != nil {
			return nil, err
		}
	}

	var task *domain.Task
	var reassigned bool
	var propagated *events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.loadTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Allow(actor.Role, authz.ActionTaskPatch, taskRelationship(actor, task)) {
			return apperrors.NewForbidden("you do not have permission to update this task")
		}

		if patch.AssignedToID != nil && *patch.AssignedToID != task.AssignedToID {
			if task.Status == domain.TaskStatusDone {
				return apperrors.NewValidationError("you cannot reassign a task that is already marked as done", nil)
			}
			if *patch.AssignedToID == "" {
				return apperrors.NewValidationError("assigned_to is required", nil)
			}
			if *patch.AssignedToID == task.AssignedByID {
				return apperrors.NewValidationError("a task cannot be assigned to its assigner", nil)
			}
			assignee, err := tx.Users().GetByID(ctx, *patch.AssignedToID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("assigned user does not exist",
						map[string]any{"assigned_to": *patch.AssignedToID})
				}
				return apperrors.MapError(err)
			}
			if assignee.Role != domain.RoleITPersonnel {
				return apperrors.NewValidationError("only IT personnel can be assigned tasks",
					map[string]any{"assigned_to": assignee.ID})
			}
			task.AssignedToID = assignee.ID
			reassigned = true
		}
		if patch.Status != nil {
			task.Status = *patch.Status
		}
		if patch.Deadline != nil {
			task.Deadline = patch.Deadline
		}

		if err := tx.Tasks().Update(ctx, task); err != nil {
			return apperrors.MapError(err)
		}
		if err := appendAudit(ctx, tx, actor.ID, fmt.Sprintf("patched task %s", task.ID)); err != nil {
			return err
		}
		propagated, err = s.propagate(ctx, tx, actor.ID, task.TicketID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if reassigned {
		s.publish(ctx, events.Event{
			Type:        events.EventTaskAssigned,
			ActorID:     actor.ID,
			RecipientID: task.AssignedToID,
			Payload: events.TaskAssignedPayload{
				TaskID:   task.ID,
				TicketID: task.TicketID,
				Status:   string(task.Status),
			},
		})
	}
	if propagated != nil {
		s.publish(ctx, *propagated)
	}
	return task, nil
}

// Delete removes a task. Staff only, and only while assignment was never
// finalized.
func (s *TaskService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !authz.Allow(actor.Role, authz.ActionTaskDelete, authz.RelationNone) {
		return apperrors.NewForbidden("only admins can delete tasks")
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		task, err := s.loadTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if task.AssignedToID != "" {
			return apperrors.NewValidationError("you cannot delete a task that is already assigned", nil)
		}
		if err := tx.Tasks().Delete(ctx, task.ID); err != nil {
			return apperrors.MapError(err)
		}
		return appendAudit(ctx, tx, actor.ID, fmt.Sprintf("deleted task %s", task.ID))
	})
}

// Get returns one task, visible to its assigner, assignee or a super_admin.
func (s *TaskService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Task, error) {
	task, err := s.loadTask(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !authz.Allow(actor.Role, authz.ActionTaskView, taskRelationship(actor, task)) {
		return nil, apperrors.NewForbidden("you do not have permission to view this task")
	}
	return task, nil
}

// List returns every task for a super_admin, the actor's assigned tasks
// otherwise.
func (s *TaskService) List(ctx context.Context, actor *domain.User) ([]domain.Task, error) {
	if !authz.Allow(actor.Role, authz.ActionTaskList, authz.RelationNone) {
		return nil, apperrors.NewForbidden("you do not have permission to list tasks")
	}
	if actor.Role == domain.RoleSuperAdmin {
		tasks, err := s.store.Tasks().ListAll(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return tasks, nil
	}
	tasks, err := s.store.Tasks().ListByAssignee(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// propagate re-derives the owning ticket's status from the aggregate task
// set, inside the caller's transaction. It returns the notification event to
// publish after commit, if the transition emits one.
func (s *TaskService) propagate(ctx context.Context, tx repository.Store, actorID, ticketID string) (*events.Event, error) {
	if ticketID == "" {
		return nil, nil
	}
	ticket, err := tx.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	statuses, err := tx.Tasks().StatusSet(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := DeriveTicketStatus(ticket.Status, TaskStatusSet(statuses))
	if !result.Changed {
		return nil, nil
	}
	oldStatus := ticket.Status
	ticket.Status = result.Next
	if err := tx.Tickets().Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := appendAudit(ctx, tx, actorID,
		fmt.Sprintf("ticket %s status changed from %s to %s", ticket.ID, oldStatus, ticket.Status)); err != nil {
		return nil, err
	}

	event := events.Event{Type: result.Notify, ActorID: actorID, RecipientID: ticket.OwnerID}
	switch result.Notify {
	case events.EventTaskCompleted:
		event.Payload = events.TaskCompletedPayload{TicketID: ticket.ID, Status: string(ticket.Status)}
	case events.EventTicketAssigned:
		event.Payload = events.TicketAssignedPayload{TicketID: ticket.ID, Status: string(ticket.Status)}
	default:
		return nil, nil
	}
	return &event, nil
}

func (s *TaskService) loadTask(ctx context.Context, tx repository.Store, id string) (*domain.Task, error) {
	task, err := tx.Tasks().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func (s *TaskService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func taskRelationship(actor *domain.User, task *domain.Task) authz.Relationship {
	switch actor.ID {
	case task.AssignedByID:
		return authz.RelationAssigner
	case task.AssignedToID:
		return authz.RelationAssignee
	}
	return authz.RelationNone
}

// validateDeadline rejects deadlines before today's UTC date.
func validateDeadline(deadline *time.Time) error {
	if deadline == nil {
		return nil
	}
	today := startOfUTCDay(time.Now())
	if deadline.UTC().Before(today) {
		return apperrors.NewValidationError("deadline cannot be in the past", nil)
	}
	return nil
}
