package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/config"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	apperrors "github.com/Thinkpad-Django-Lenovo/helpdesk/pkg/util"
)

func newTicketService(f *fixture) *TicketService {
	return NewTicketService(f.store, f.dispatcher, config.TicketConfig{DailyCreateLimit: 10})
}

func TestTicketCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner is the creator and status starts new", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)

		ticket, err := svc.Create(ctx, owner, "  Printer broken  ", "third floor printer jams")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, ticket.OwnerID)
		assert.Equal(t, domain.TicketStatusNew, ticket.Status)
		assert.Equal(t, "Printer broken", ticket.Subject)
		assert.Equal(t, 1, f.sink.count(events.EventTicketCreated))
	})

	t.Run("blank subject or description rejected", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)

		_, err := svc.Create(ctx, owner, "   ", "desc")
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
		_, err = svc.Create(ctx, owner, "subject", " ")
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("duplicate open subject rejected case-insensitively", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)

		_, err := svc.Create(ctx, owner, "VPN down", "cannot connect")
		require.NoError(t, err)
		_, err = svc.Create(ctx, owner, "vpn DOWN", "still cannot connect")
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("same subject allowed once the first ticket is closed", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		f.seedTicket(t, owner.ID, "VPN down", domain.TicketStatusClosed)

		_, err := svc.Create(ctx, owner, "VPN down", "it broke again")
		assert.NoError(t, err)
	})

	t.Run("same subject allowed for a different owner", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		alice := f.seedUser(t, "alice", domain.RoleEndUser)
		bob := f.seedUser(t, "bob", domain.RoleEndUser)
		f.seedTicket(t, alice.ID, "VPN down", domain.TicketStatusNew)

		_, err := svc.Create(ctx, bob, "VPN down", "me too")
		assert.NoError(t, err)
	})

	t.Run("tenth ticket of the day succeeds, eleventh hits the quota", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)

		for i := 0; i < 10; i++ {
			_, err := svc.Create(ctx, owner, fmt.Sprintf("issue %d", i), "details")
			require.NoError(t, err)
		}
		_, err := svc.Create(ctx, owner, "issue 10", "details")
		assert.True(t, apperrors.IsCode(err, "QUOTA_EXCEEDED"))
	})

	t.Run("quota counts per owner", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		alice := f.seedUser(t, "alice", domain.RoleEndUser)
		bob := f.seedUser(t, "bob", domain.RoleEndUser)

		for i := 0; i < 10; i++ {
			_, err := svc.Create(ctx, alice, fmt.Sprintf("issue %d", i), "details")
			require.NoError(t, err)
		}
		_, err := svc.Create(ctx, bob, "bob issue", "details")
		assert.NoError(t, err)
	})
}

func TestTicketUpdateFull(t *testing.T) {
	ctx := context.Background()

	t.Run("owner edits a new ticket", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "old subject", domain.TicketStatusNew)

		updated, err := svc.UpdateFull(ctx, owner, ticket.ID, "new subject", "new description")
		require.NoError(t, err)
		assert.Equal(t, "new subject", updated.Subject)
	})

	t.Run("non-owner may not edit, super admin included", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		_, err := svc.UpdateFull(ctx, admin, ticket.ID, "other", "other")
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("blocked once work started", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		for _, status := range []domain.TicketStatus{
			domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed,
		} {
			ticket := f.seedTicket(t, owner.ID, "subject "+string(status), status)
			_, err := svc.UpdateFull(ctx, owner, ticket.ID, "new", "new")
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "status %s", status)
		}
	})

	t.Run("renaming onto another open subject rejected", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		f.seedTicket(t, owner.ID, "taken", domain.TicketStatusNew)
		ticket := f.seedTicket(t, owner.ID, "mine", domain.TicketStatusNew)

		_, err := svc.UpdateFull(ctx, owner, ticket.ID, "Taken", "desc")
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("keeping its own subject is not a duplicate", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "mine", domain.TicketStatusNew)

		_, err := svc.UpdateFull(ctx, owner, ticket.ID, "mine", "fresh description")
		assert.NoError(t, err)
	})
}

func TestTicketUpdatePartial(t *testing.T) {
	ctx := context.Background()

	t.Run("owner patches description", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		desc := "more detail"
		updated, err := svc.UpdatePartial(ctx, owner, ticket.ID, TicketPatch{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, desc, updated.Description)
	})

	t.Run("resolved tickets cannot be patched", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusResolved)

		desc := "late edit"
		_, err := svc.UpdatePartial(ctx, owner, ticket.ID, TicketPatch{Description: &desc})
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("only super admin may set status directly", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		status := domain.TicketStatusClosed
		_, err := svc.UpdatePartial(ctx, owner, ticket.ID, TicketPatch{Status: &status})
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("super admin status override notifies the owner", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		status := domain.TicketStatusClosed
		updated, err := svc.UpdatePartial(ctx, admin, ticket.ID, TicketPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, updated.Status)
		assert.Equal(t, []events.EventType{events.EventTicketStatusChanged}, f.sink.forUser(owner.ID))
	})

	t.Run("setting the same status emits nothing", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		status := domain.TicketStatusNew
		_, err := svc.UpdatePartial(ctx, admin, ticket.ID, TicketPatch{Status: &status})
		require.NoError(t, err)
		assert.Zero(t, f.sink.count(events.EventTicketStatusChanged))
	})
}

func TestTicketDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes a new ticket and its tasks", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		tech := f.seedUser(t, "tech", domain.RoleITPersonnel)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)
		task := f.seedTask(t, domain.Task{TicketID: ticket.ID, AssignedToID: tech.ID})

		require.NoError(t, svc.Delete(ctx, owner, ticket.ID))

		_, err := f.store.Tickets().GetByID(ctx, ticket.ID)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
		_, err = f.store.Tasks().GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("blocked while assigned or in progress", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		for _, status := range []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusInProgress} {
			ticket := f.seedTicket(t, owner.ID, "subject "+string(status), status)
			err := svc.Delete(ctx, owner, ticket.ID)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "status %s", status)
		}
	})

	t.Run("non-owner may not delete", func(t *testing.T) {
		f := newFixture(t)
		svc := newTicketService(f)
		owner := f.seedUser(t, "alice", domain.RoleEndUser)
		other := f.seedUser(t, "bob", domain.RoleEndUser)
		ticket := f.seedTicket(t, owner.ID, "subject", domain.TicketStatusNew)

		err := svc.Delete(ctx, other, ticket.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})
}

func TestTicketVisibility(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	svc := newTicketService(f)
	alice := f.seedUser(t, "alice", domain.RoleEndUser)
	bob := f.seedUser(t, "bob", domain.RoleEndUser)
	admin := f.seedUser(t, "root", domain.RoleSuperAdmin)
	ticket := f.seedTicket(t, alice.ID, "subject", domain.TicketStatusNew)
	f.seedTicket(t, bob.ID, "bob subject", domain.TicketStatusNew)

	t.Run("owner and admin see the ticket, others do not", func(t *testing.T) {
		_, err := svc.Get(ctx, alice, ticket.ID)
		assert.NoError(t, err)
		_, err = svc.Get(ctx, admin, ticket.ID)
		assert.NoError(t, err)
		_, err = svc.Get(ctx, bob, ticket.ID)
		assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("list scopes to owner except for admin", func(t *testing.T) {
		mine, err := svc.List(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		everything, err := svc.List(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, everything, 2)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, admin, "missing")
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})
}
