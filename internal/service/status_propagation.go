package service

import (
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
)

// TaskStatusSet is the collapsed set of task statuses under one ticket.
type TaskStatusSet map[domain.TaskStatus]struct{}

// PropagationResult is the outcome of one derivation pass.
type PropagationResult struct {
	Next    domain.TicketStatus
	Changed bool
	// Notify names the notification to emit, or "" for silent transitions.
	Notify events.EventType
}

// propagationRule is one row of the derivation table. Rows are evaluated in
// order; the first matching row wins. A row only fires when the current
// ticket status is not in blocked (and equals only, when set), which is what
// keeps the derived status from regressing.
type propagationRule struct {
	match   func(TaskStatusSet) bool
	target  domain.TicketStatus
	blocked []domain.TicketStatus
	only    domain.TicketStatus
	notify  events.EventType
}

var propagationRules = []propagationRule{
	{
		match:   exactlyDone,
		target:  domain.TicketStatusResolved,
		blocked: []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed},
		notify:  events.EventTaskCompleted,
	},
	{
		match:   hasStatus(domain.TaskStatusInProgress),
		target:  domain.TicketStatusInProgress,
		blocked: []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	},
	{
		match:  hasStatus(domain.TaskStatusPending),
		target: domain.TicketStatusAssigned,
		only:   domain.TicketStatusNew,
		notify: events.EventTicketAssigned,
	},
}

// DeriveTicketStatus computes the ticket status implied by the aggregate
// task-status set. It is evaluated once per triggering task mutation and is
// idempotent: a second pass over unchanged input reports no change and no
// notification.
func DeriveTicketStatus(current domain.TicketStatus, set TaskStatusSet) PropagationResult {
	for _, rule := range propagationRules {
		if !rule.match(set) {
			continue
		}
		if rule.only != "" && current != rule.only {
			return PropagationResult{Next: current}
		}
		for _, blockedStatus := range rule.blocked {
			if current == blockedStatus {
				return PropagationResult{Next: current}
			}
		}
		return PropagationResult{Next: rule.target, Changed: true, Notify: rule.notify}
	}
	return PropagationResult{Next: current}
}

func exactlyDone(set TaskStatusSet) bool {
	_, done := set[domain.TaskStatusDone]
	return done && len(set) == 1
}

func hasStatus(status domain.TaskStatus) func(TaskStatusSet) bool {
	return func(set TaskStatusSet) bool {
		_, ok := set[status]
		return ok
	}
}
