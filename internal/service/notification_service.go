package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/notify"
)

// NotificationService forwards domain events to the real-time sink. It runs
// on the dispatcher's post-commit path; sink errors are logged and swallowed
// so delivery failures never surface to the triggering caller.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       notify.Sink
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sink notify.Sink, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, sink: sink, logger: logger}
}

// RegisterHandlers subscribes to every event type that carries a recipient.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTaskAssigned,
		events.EventTaskCompleted,
	} {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if event.RecipientID == "" {
		return nil
	}
	if err := n.sink.Publish(ctx, event.RecipientID, event.Type, event.Payload); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("recipient", event.RecipientID),
			zap.Error(err))
	}
	return nil
}
