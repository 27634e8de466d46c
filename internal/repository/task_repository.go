package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
)

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Task, error)
	// StatusSet returns the distinct task statuses under a ticket. Duplicates
	// collapse; an empty map means the ticket has no tasks.
	StatusSet(ctx context.Context, ticketID string) (map[domain.TaskStatus]struct{}, error)
}

type taskRepository struct {
	db DB
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(db DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, ticket_id, assigned_by, assigned_to, status, deadline, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (ticket_id, assigned_by, assigned_to, status, deadline)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		nullIfEmpty(task.TicketID),
		nullIfEmpty(task.AssignedByID),
		nullIfEmpty(task.AssignedToID),
		task.Status,
		task.Deadline,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET ticket_id=$1, assigned_by=$2, assigned_to=$3, status=$4, deadline=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		nullIfEmpty(task.TicketID),
		nullIfEmpty(task.AssignedByID),
		nullIfEmpty(task.AssignedToID),
		task.Status,
		task.Deadline,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	var task domain.Task
	if err := scanTask(r.db.QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to=$1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) StatusSet(ctx context.Context, ticketID string) (map[domain.TaskStatus]struct{}, error) {
	const query = `SELECT DISTINCT status FROM tasks WHERE ticket_id=$1`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[domain.TaskStatus]struct{})
	for rows.Next() {
		var status domain.TaskStatus
		if err := rows.Scan(&status); err != nil {
			return nil, err
		}
		set[status] = struct{}{}
	}
	return set, rows.Err()
}

func scanTask(row pgx.Row, task *domain.Task) error {
	var ticketID, assignedBy, assignedTo *string
	if err := row.Scan(
		&task.ID,
		&ticketID,
		&assignedBy,
		&assignedTo,
		&task.Status,
		&task.Deadline,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return err
	}
	task.TicketID = deref(ticketID)
	task.AssignedByID = deref(assignedBy)
	task.AssignedToID = deref(assignedTo)
	return nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
