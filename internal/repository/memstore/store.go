// Package memstore is an in-memory repository.Store. It backs the service
// tests and lets the server run without a POSTGRES_DSN. A single mutex
// serializes transactions; WithinTx works on a copy of the dataset and swaps
// it in on success, so failed mutations leave no partial writes.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
)

type dataset struct {
	users   map[string]domain.User
	tickets map[string]domain.Ticket
	tasks   map[string]domain.Task
	audit   []domain.AuditLog
}

func newDataset() *dataset {
	return &dataset{
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
		tasks:   make(map[string]domain.Task),
	}
}

func (d *dataset) clone() *dataset {
	out := newDataset()
	for id, u := range d.users {
		out.users[id] = u
	}
	for id, t := range d.tickets {
		out.tickets[id] = t
	}
	for id, t := range d.tasks {
		if t.Deadline != nil {
			deadline := *t.Deadline
			t.Deadline = &deadline
		}
		out.tasks[id] = t
	}
	out.audit = append([]domain.AuditLog(nil), d.audit...)
	return out
}

// Store implements repository.Store over process memory.
type Store struct {
	mu   *sync.Mutex
	data *dataset
	inTx bool
}

// New creates an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newDataset()}
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) Users() repository.UserRepository     { return userRepo{s} }
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) Tasks() repository.TaskRepository     { return taskRepo{s} }
func (s *Store) Audit() repository.AuditLogRepository { return auditRepo{s} }

// WithinTx serializes the whole mutation under the store mutex.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := &Store{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(scratch); err != nil {
		return err
	}
	s.data = scratch.data
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.lock()
	defer r.s.unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.data.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, user := range r.s.data.users {
		if strings.EqualFold(user.Username, username) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(ctx context.Context) ([]domain.User, error) {
	r.s.lock()
	defer r.s.unlock()
	result := make([]domain.User, 0, len(r.s.data.users))
	for _, user := range r.s.data.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r userRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, user := range r.s.data.users {
		if user.ID != excludeID && strings.EqualFold(user.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, user := range r.s.data.users {
		if user.ID != excludeID && strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.s.lock()
	defer r.s.unlock()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.data.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now().UTC()
	r.s.data.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.s.lock()
	defer r.s.unlock()
	ticket, ok := r.s.data.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) Delete(ctx context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.data.tickets, id)
	for taskID, task := range r.s.data.tasks {
		if task.TicketID == id {
			delete(r.s.data.tasks, taskID)
		}
	}
	return nil
}

func (r ticketRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	r.s.lock()
	defer r.s.unlock()
	result := make([]domain.Ticket, 0, len(r.s.data.tickets))
	for _, ticket := range r.s.data.tickets {
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r ticketRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	r.s.lock()
	defer r.s.unlock()
	var result []domain.Ticket
	for _, ticket := range r.s.data.tickets {
		if ticket.OwnerID == ownerID {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r ticketRepo) HasOpenWithSubject(ctx context.Context, ownerID, subject, excludeID string) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, ticket := range r.s.data.tickets {
		if ticket.ID == excludeID || ticket.OwnerID != ownerID {
			continue
		}
		if ticket.Status.IsOpen() && strings.EqualFold(ticket.Subject, subject) {
			return true, nil
		}
	}
	return false, nil
}

func (r ticketRepo) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	count := 0
	for _, ticket := range r.s.data.tickets {
		if ticket.OwnerID == ownerID && !ticket.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type taskRepo struct{ s *Store }

func (r taskRepo) Create(ctx context.Context, task *domain.Task) error {
	r.s.lock()
	defer r.s.unlock()
	task.ID = uuid.NewString()
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	r.s.data.tasks[task.ID] = *task
	return nil
}

func (r taskRepo) Update(ctx context.Context, task *domain.Task) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	task.UpdatedAt = time.Now().UTC()
	r.s.data.tasks[task.ID] = *task
	return nil
}

func (r taskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.s.lock()
	defer r.s.unlock()
	task, ok := r.s.data.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &task, nil
}

func (r taskRepo) Delete(ctx context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.data.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.data.tasks, id)
	return nil
}

func (r taskRepo) ListAll(ctx context.Context) ([]domain.Task, error) {
	r.s.lock()
	defer r.s.unlock()
	result := make([]domain.Task, 0, len(r.s.data.tasks))
	for _, task := range r.s.data.tasks {
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r taskRepo) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	r.s.lock()
	defer r.s.unlock()
	var result []domain.Task
	for _, task := range r.s.data.tasks {
		if task.AssignedToID == userID {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r taskRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Task, error) {
	r.s.lock()
	defer r.s.unlock()
	var result []domain.Task
	for _, task := range r.s.data.tasks {
		if task.TicketID == ticketID {
			result = append(result, task)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r taskRepo) StatusSet(ctx context.Context, ticketID string) (map[domain.TaskStatus]struct{}, error) {
	r.s.lock()
	defer r.s.unlock()
	set := make(map[domain.TaskStatus]struct{})
	for _, task := range r.s.data.tasks {
		if task.TicketID == ticketID {
			set[task.Status] = struct{}{}
		}
	}
	return set, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(ctx context.Context, entry *domain.AuditLog) error {
	r.s.lock()
	defer r.s.unlock()
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()
	r.s.data.audit = append(r.s.data.audit, *entry)
	return nil
}

func (r auditRepo) ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLog, error) {
	r.s.lock()
	defer r.s.unlock()
	var result []domain.AuditLog
	for i := len(r.s.data.audit) - 1; i >= 0 && len(result) < effectiveLimit(limit); i-- {
		if r.s.data.audit[i].ActorID == actorID {
			result = append(result, r.s.data.audit[i])
		}
	}
	return result, nil
}

func (r auditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	r.s.lock()
	defer r.s.unlock()
	var result []domain.AuditLog
	for i := len(r.s.data.audit) - 1; i >= 0 && len(result) < effectiveLimit(limit); i-- {
		result = append(result, r.s.data.audit[i])
	}
	return result, nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
