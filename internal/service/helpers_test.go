package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/domain"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository/memstore"
)

// recordingSink captures every notification the pipeline would deliver.
type recordingSink struct {
	mu       sync.Mutex
	messages []sinkMessage
}

type sinkMessage struct {
	UserID string
	Type   events.EventType
}

func (s *recordingSink) Publish(ctx context.Context, userID string, eventType events.EventType, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, sinkMessage{UserID: userID, Type: eventType})
	return nil
}

func (s *recordingSink) count(eventType events.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.Type == eventType {
			n++
		}
	}
	return n
}

func (s *recordingSink) forUser(userID string) []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []events.EventType
	for _, m := range s.messages {
		if m.UserID == userID {
			result = append(result, m.Type)
		}
	}
	return result
}

// fixture bundles an in-memory store with the full event pipeline, so tests
// observe notifications exactly as the redis sink would receive them.
type fixture struct {
	store      *memstore.Store
	dispatcher events.Dispatcher
	sink       *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memstore.New(),
		dispatcher: events.NewInMemoryDispatcher(),
		sink:       &recordingSink{},
	}
	NewNotificationService(f.dispatcher, f.sink, zap.NewNop()).RegisterHandlers()
	return f
}

func (f *fixture) seedUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) seedTicket(t *testing.T, ownerID, subject string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		OwnerID:     ownerID,
		Subject:     subject,
		Description: "seeded",
		Status:      status,
	}
	require.NoError(t, f.store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func (f *fixture) seedTask(t *testing.T, task domain.Task) *domain.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	require.NoError(t, f.store.Tasks().Create(context.Background(), &task))
	return &task
}
