package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Delete removes the ticket; owned tasks cascade.
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// HasOpenWithSubject checks whether the owner already has an open ticket
	// with the same subject, case-insensitively, excluding the given ticket
	// id (pass "" for none). The subject must already be trimmed.
	HasOpenWithSubject(ctx context.Context, ownerID, subject, excludeID string) (bool, error)
	// CountCreatedSince counts tickets the owner created at or after the
	// given instant. Used for the daily creation quota.
	CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, owner_id, subject, description, status, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (owner_id, subject, description, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, status=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tickets WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *ticketRepository) HasOpenWithSubject(ctx context.Context, ownerID, subject, excludeID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM tickets
            WHERE owner_id=$1 AND LOWER(subject)=LOWER($2)
              AND status IN ('new','assigned','in_progress')
              AND ($3='' OR id<>$3::uuid)
        )`
	var exists bool
	err := r.db.QueryRow(ctx, query, ownerID, subject, excludeID).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE owner_id=$1 AND created_at >= $2`
	var count int
	err := r.db.QueryRow(ctx, query, ownerID, since).Scan(&count)
	return count, err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
