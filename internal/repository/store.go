package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx, so the same
// repository code runs inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store bundles the repositories behind a single transactional boundary.
// WithinTx runs fn against a store whose repositories share one transaction:
// validation reads and the subsequent writes of a mutation are serialized
// against concurrent mutations of the same rows.
type Store interface {
	Users() UserRepository
	Tickets() TicketRepository
	Tasks() TaskRepository
	Audit() AuditLogRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db     DB
	users  UserRepository
	ticket TicketRepository
	tasks  TaskRepository
	audit  AuditLogRepository
}

// NewStore builds a Postgres-backed store on top of a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return newSQLStore(pool)
}

func newSQLStore(db DB) *sqlStore {
	return &sqlStore{
		db:     db,
		users:  NewUserRepository(db),
		ticket: NewTicketRepository(db),
		tasks:  NewTaskRepository(db),
		audit:  NewAuditLogRepository(db),
	}
}

func (s *sqlStore) Users() UserRepository       { return s.users }
func (s *sqlStore) Tickets() TicketRepository   { return s.ticket }
func (s *sqlStore) Tasks() TaskRepository       { return s.tasks }
func (s *sqlStore) Audit() AuditLogRepository   { return s.audit }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newSQLStore(tx))
	})
}
