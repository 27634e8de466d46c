package domain

import "time"

// AuditLog is an append-only trace record of a system action. Entries are
// never updated or deleted.
type AuditLog struct {
	ID        string
	ActorID   string
	Event     string
	Timestamp time.Time
}
