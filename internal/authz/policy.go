// Package authz holds the hardcoded authorization table for the helpdesk.
// Every mutating or listing operation consults it before touching state.
// Decisions depend only on the actor's role and its relationship to the
// resource; there are no stored ACLs.
package authz

import "github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"

// Action identifies a guarded operation.
type Action string

const (
	ActionTicketCreate        Action = "ticket.create"
	ActionTicketUpdateFull    Action = "ticket.update_full"
	ActionTicketUpdatePartial Action = "ticket.update_partial"
	ActionTicketDelete        Action = "ticket.delete"
	ActionTicketView          Action = "ticket.view"
	ActionTicketList          Action = "ticket.list"

	ActionTaskCreate     Action = "task.create"
	ActionTaskUpdateFull Action = "task.update_full"
	ActionTaskPatch      Action = "task.patch"
	ActionTaskDelete     Action = "task.delete"
	ActionTaskView       Action = "task.view"
	ActionTaskList       Action = "task.list"

	ActionUserUpdate Action = "user.update"
	ActionUserView   Action = "user.view"
	ActionUserList   Action = "user.list"

	ActionAuditView Action = "audit.view"
)

// Relationship describes how the actor relates to the resource under check.
type Relationship string

const (
	RelationNone     Relationship = "none"
	RelationOwner    Relationship = "owner"
	RelationAssigner Relationship = "assigner"
	RelationAssignee Relationship = "assignee"
	RelationSelf     Relationship = "self"
)

// rule is one row of the decision table. Empty role or relationship sets
// mean "any". adminOverride lets super_admin through regardless of the
// relationship requirement.
type rule struct {
	roles         map[domain.Role]bool
	relationships map[Relationship]bool
	adminOverride bool
}

func roles(rs ...domain.Role) map[domain.Role]bool {
	set := make(map[domain.Role]bool, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return set
}

func relationships(rels ...Relationship) map[Relationship]bool {
	set := make(map[Relationship]bool, len(rels))
	for _, rel := range rels {
		set[rel] = true
	}
	return set
}

var table = map[Action]rule{
	// Tickets are filed by any authenticated role and owned by the creator.
	ActionTicketCreate:        {},
	ActionTicketUpdateFull:    {relationships: relationships(RelationOwner)},
	ActionTicketUpdatePartial: {relationships: relationships(RelationOwner), adminOverride: true},
	ActionTicketDelete:        {relationships: relationships(RelationOwner)},
	ActionTicketView:          {relationships: relationships(RelationOwner), adminOverride: true},
	ActionTicketList:          {},

	// Tasks are staff-assigned work items.
	ActionTaskCreate:     {roles: roles(domain.RoleITPersonnel, domain.RoleSuperAdmin)},
	ActionTaskUpdateFull: {relationships: relationships(RelationAssigner), adminOverride: true},
	ActionTaskPatch:      {relationships: relationships(RelationAssigner, RelationAssignee), adminOverride: true},
	ActionTaskDelete:     {roles: roles(domain.RoleITPersonnel, domain.RoleSuperAdmin)},
	ActionTaskView:       {relationships: relationships(RelationAssigner, RelationAssignee), adminOverride: true},
	ActionTaskList:       {},

	ActionUserUpdate: {relationships: relationships(RelationSelf), adminOverride: true},
	ActionUserView:   {},
	ActionUserList:   {},

	ActionAuditView: {roles: roles(domain.RoleSuperAdmin)},
}

// Allow evaluates the decision table for the given actor role, action and
// actor-resource relationship.
func Allow(role domain.Role, action Action, rel Relationship) bool {
	r, ok := table[action]
	if !ok {
		return false
	}
	if r.adminOverride && role == domain.RoleSuperAdmin {
		return true
	}
	if len(r.roles) > 0 && !r.roles[role] {
		return false
	}
	if len(r.relationships) > 0 && !r.relationships[rel] {
		return false
	}
	return true
}
