package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// AuditLogRepository stores the append-only trace of system actions.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLog, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

type auditLogRepository struct {
	db DB
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_log (actor_id, event)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ActorID,
		entry.Event,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (r *auditLogRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLog, error) {
	const query = `
        SELECT id, actor_id, event, created_at
        FROM audit_log WHERE actor_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, actorID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func (r *auditLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	const query = `
        SELECT id, actor_id, event, created_at
        FROM audit_log ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows pgx.Rows) ([]domain.AuditLog, error) {
	var result []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Event, &entry.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
