package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

func TestTaskCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("end users cannot create tasks", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		user := f.seedUser(t, "alice", domain.RoleEndUser)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)

		_, err := svc.Create(ctx, user, TaskCreateInput{AssignedToID: tech.ID})
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("self-assignment rejected", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)

		_, err := svc.Create(ctx, admin, TaskCreateInput{AssignedToID: admin.ID})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("assignee must exist", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)

		_, err := svc.Create(ctx, admin, TaskCreateInput{AssignedToID: "ghost"})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("past deadline rejected", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)

		yesterday := time.Now().UTC().Add(-48 * time.Hour)
		_, err := svc.Create(ctx, admin, TaskCreateInput{AssignedToID: tech.ID, Deadline: &yesterday})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("creation notifies the assignee and assigns the ticket", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		task, err := svc.Create(ctx, admin, TaskCreateInput{TicketID: ticket.ID, AssignedToID: tech.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, admin.ID, task.AssignedByID)

		got, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusAssigned, got.Status)

		assert.Equal(t, []events.EventType{events.EventTaskAssigned}, f.sink.forUser(tech.ID))
		assert.Equal(t, []events.EventType{events.EventTicketAssigned}, f.sink.forUser(owner.ID))
	})

	t.Run("standalone task skips propagation", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)

		_, err := svc.Create(ctx, admin, TaskCreateInput{AssignedToID: tech.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, f.sink.count(events.EventTaskAssigned))
		assert.Zero(t, f.sink.count(events.EventTicketAssigned))
	})

	t.Run("unknown ticket is not found", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)

		_, err := svc.Create(ctx, admin, TaskCreateInput{TicketID: "missing", AssignedToID: tech.ID})
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})
}

func TestTaskPatchReassignment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *TaskService, *domain.User, *domain.User, *domain.Task) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		assigner := f.seedUser(t, "lead", domain.RoleITPersonnel)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
		task := f.seedTask(t, domain.Task{AssignedByID: assigner.ID, AssignedToID: tech.ID})
		return f, svc, assigner, tech, task
	}

	t.Run("assigner reassigns to another technician", func(t *testing.T) {
		f, svc, assigner, _, task := setup(t)
		other := f.seedUser(t, "other", domain.RoleITPersonnel)

		updated, err := svc.Patch(ctx, assigner, task.ID, TaskPatch{AssignedToID: &other.ID})
		require.NoError(t, err)
		assert.Equal(t, other.ID, updated.AssignedToID)
		assert.Equal(t, []events.EventType{events.EventTaskAssigned}, f.sink.forUser(other.ID))
	})

	t.Run("reassignment to an end user rejected", func(t *testing.T) {
		f, svc, assigner, _, task := setup(t)
		user := f.seedUser(t, "alice", domain.RoleEndUser)

		_, err := svc.Patch(ctx, assigner, task.ID, TaskPatch{AssignedToID: &user.ID})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("reassignment back to the assigner rejected", func(t *testing.T) {
		_, svc, assigner, _, task := setup(t)

		_, err := svc.Patch(ctx, assigner, task.ID, TaskPatch{AssignedToID: &assigner.ID})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("done tasks cannot be reassigned", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		assigner := f.seedUser(t, "lead", domain.RoleITPersonnel)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
		other := f.seedUser(t, "other", domain.RoleITPersonnel)
		task := f.seedTask(t, domain.Task{
			AssignedByID: assigner.ID,
			AssignedToID: tech.ID,
			Status:       domain.TaskStatusDone,
		})

		_, err := svc.Patch(ctx, assigner, task.ID, TaskPatch{AssignedToID: &other.ID})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("assignee may update status but a stranger may not", func(t *testing.T) {
		f, svc, _, tech, task := setup(t)
		stranger := f.seedUser(t, "stranger", domain.RoleITPersonnel)

		status := domain.TaskStatusInProgress
		updated, err := svc.Patch(ctx, tech, task.ID, TaskPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, updated.Status)

		_, err = svc.Patch(ctx, stranger, task.ID, TaskPatch{Status: &status})
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("same assignee in patch is not a reassignment", func(t *testing.T) {
		f, svc, assigner, tech, task := setup(t)

		_, err := svc.Patch(ctx, assigner, task.ID, TaskPatch{AssignedToID: &tech.ID})
		require.NoError(t, err)
		assert.Zero(t, f.sink.count(events.EventTaskAssigned))
	})
}

func TestTaskDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned tasks cannot be deleted", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
		task := f.seedTask(t, domain.Task{AssignedByID: admin.ID, AssignedToID: tech.ID})

		err := svc.Delete(ctx, admin, task.ID)
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("unassigned tasks are deletable by staff only", func(t *testing.T) {
		f := newFixture(t)
		svc := NewTaskService(f.store, f.dispatcher)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		user := f.seedUser(t, "alice", domain.RoleEndUser)
		task := f.seedTask(t, domain.Task{AssignedByID: admin.ID})

		err := svc.Delete(ctx, user, task.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
		assert.NoError(t, svc.Delete(ctx, admin, task.ID))
	})
}

func TestTaskVisibility(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	svc := NewTaskService(f.store, f.dispatcher)
	assigner := f.seedUser(t, "lead", domain.RoleITPersonnel)
	tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
	stranger := f.seedUser(t, "stranger", domain.RoleITPersonnel)
	admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
	task := f.seedTask(t, domain.Task{AssignedByID: assigner.ID, AssignedToID: tech.ID})

	t.Run("assigner, assignee and admin can view", func(t *testing.T) {
		for _, actor := range []*domain.User{assigner, tech, admin} {
			_, err := svc.Get(ctx, actor, task.ID)
			assert.NoError(t, err, actor.Username)
		}
		_, err := svc.Get(ctx, stranger, task.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("list scopes to assignee except for admin", func(t *testing.T) {
		mine, err := svc.List(ctx, tech)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		none, err := svc.List(ctx, stranger)
		require.NoError(t, err)
		assert.Empty(t, none)

		everything, err := svc.List(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, everything, 1)
	})
}

// Walks a ticket through its whole derived lifecycle and checks both the
// status at every step and exactly which notifications fired.
func TestTicketLifecycleThroughTasks(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	tickets := newTicketService(f)
	tasks := NewTaskService(f.store, f.dispatcher)

	owner := f.seedUser(t, "alice", domain.RoleEndUser)
	admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
	techA := f.seedUser(t, "tech-a", domain.RoleITPersonnel)
	techB := f.seedUser(t, "tech-b", domain.RoleITPersonnel)

	ticket, err := tickets.Create(ctx, owner, "Laptop will not boot", "black screen on power-up")
	require.NoError(t, err)

	ticketStatus := func() domain.TicketStatus {
		got, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		return got.Status
	}

	// two pending tasks assign the ticket, notifying the owner once
	taskA, err := tasks.Create(ctx, admin, TaskCreateInput{TicketID: ticket.ID, AssignedToID: techA.ID})
	require.NoError(t, err)
	taskB, err := tasks.Create(ctx, admin, TaskCreateInput{TicketID: ticket.ID, AssignedToID: techB.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticketStatus())
	assert.Equal(t, 1, f.sink.count(events.EventTicketAssigned))

	// first task starting moves the ticket to in_progress, silently
	inProgress := domain.TaskStatusInProgress
	_, err = tasks.Patch(ctx, techA, taskA.ID, TaskPatch{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticketStatus())

	// one task done while the other is pending keeps the ticket in_progress
	done := domain.TaskStatusDone
	_, err = tasks.Patch(ctx, techA, taskA.ID, TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticketStatus())
	assert.Zero(t, f.sink.count(events.EventTaskCompleted))

	// last task done resolves the ticket and notifies the owner
	_, err = tasks.Patch(ctx, techB, taskB.ID, TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticketStatus())
	assert.Equal(t, 1, f.sink.count(events.EventTaskCompleted))

	// the owner saw: created, assigned, resolved; each exactly once
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTaskCompleted,
	}, f.sink.forUser(owner.ID))
}
