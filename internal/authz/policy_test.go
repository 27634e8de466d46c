package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		name   string
		role   domain.Role
		action Action
		rel    Relationship
		want   bool
	}{
		{"end user creates ticket", domain.RoleEndUser, ActionTicketCreate, RelationNone, true},
		{"it personnel creates ticket", domain.RoleITPersonnel, ActionTicketCreate, RelationNone, true},
		{"super admin creates ticket", domain.RoleSuperAdmin, ActionTicketCreate, RelationNone, true},

		{"owner full-updates ticket", domain.RoleEndUser, ActionTicketUpdateFull, RelationOwner, true},
		{"admin cannot full-update foreign ticket", domain.RoleSuperAdmin, ActionTicketUpdateFull, RelationNone, false},
		{"owner patches ticket", domain.RoleEndUser, ActionTicketUpdatePartial, RelationOwner, true},
		{"admin patches foreign ticket", domain.RoleSuperAdmin, ActionTicketUpdatePartial, RelationNone, true},
		{"stranger cannot patch ticket", domain.RoleITPersonnel, ActionTicketUpdatePartial, RelationNone, false},

		{"owner deletes ticket", domain.RoleEndUser, ActionTicketDelete, RelationOwner, true},
		{"admin cannot delete foreign ticket", domain.RoleSuperAdmin, ActionTicketDelete, RelationNone, false},

		{"owner views ticket", domain.RoleEndUser, ActionTicketView, RelationOwner, true},
		{"admin views any ticket", domain.RoleSuperAdmin, ActionTicketView, RelationNone, true},
		{"stranger cannot view ticket", domain.RoleEndUser, ActionTicketView, RelationNone, false},

		{"end user cannot create task", domain.RoleEndUser, ActionTaskCreate, RelationNone, false},
		{"it personnel creates task", domain.RoleITPersonnel, ActionTaskCreate, RelationNone, true},
		{"admin creates task", domain.RoleSuperAdmin, ActionTaskCreate, RelationNone, true},

		{"assigner full-updates task", domain.RoleITPersonnel, ActionTaskUpdateFull, RelationAssigner, true},
		{"assignee cannot full-update task", domain.RoleITPersonnel, ActionTaskUpdateFull, RelationAssignee, false},
		{"admin full-updates any task", domain.RoleSuperAdmin, ActionTaskUpdateFull, RelationNone, true},

		{"assigner patches task", domain.RoleITPersonnel, ActionTaskPatch, RelationAssigner, true},
		{"assignee patches task", domain.RoleITPersonnel, ActionTaskPatch, RelationAssignee, true},
		{"stranger cannot patch task", domain.RoleITPersonnel, ActionTaskPatch, RelationNone, false},
		{"admin patches any task", domain.RoleSuperAdmin, ActionTaskPatch, RelationNone, true},

		{"end user cannot delete task", domain.RoleEndUser, ActionTaskDelete, RelationNone, false},
		{"it personnel deletes task", domain.RoleITPersonnel, ActionTaskDelete, RelationNone, true},

		{"self profile update", domain.RoleEndUser, ActionUserUpdate, RelationSelf, true},
		{"foreign profile update denied", domain.RoleITPersonnel, ActionUserUpdate, RelationNone, false},
		{"admin updates any profile", domain.RoleSuperAdmin, ActionUserUpdate, RelationNone, true},

		{"end user cannot view audit log", domain.RoleEndUser, ActionAuditView, RelationNone, false},
		{"it personnel cannot view audit log", domain.RoleITPersonnel, ActionAuditView, RelationNone, false},
		{"admin views audit log", domain.RoleSuperAdmin, ActionAuditView, RelationNone, true},

		{"unknown action denied", domain.RoleSuperAdmin, Action("nope"), RelationNone, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allow(tc.role, tc.action, tc.rel))
		})
	}
}
